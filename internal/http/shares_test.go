package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagraph/accounts/internal/crypto"
	"github.com/diagraph/accounts/internal/model"
)

func seedShareToken(store *fakeStore, graphID, userID string, expiresAt time.Time) model.ShareToken {
	token, _ := crypto.NewShareToken()
	share := model.ShareToken{
		ID:        uuid.NewString(),
		GraphID:   graphID,
		UserID:    userID,
		Token:     token,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	store.mu.Lock()
	store.shares[share.ID] = share
	store.mu.Unlock()
	return share
}

func TestCreateShareLink(t *testing.T) {
	srv, store := newTestServer(t)
	user := seedUser(store, "ada@example.com", model.PlanFree)
	token, _ := signIn(t, srv, store, user.ID)
	graph := seedGraph(store, user.ID, "roadmap", time.Hour)

	before := time.Now().UTC()
	rec := doRequest(t, srv, http.MethodPost, "/graphs/"+graph.ID+"/share", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	shareToken, _ := body["token"].(string)
	require.Len(t, shareToken, 43, "32 random bytes, base64url without padding")

	expiresAtRaw, ok := body["expiresAt"].(string)
	require.True(t, ok, "expiresAt: %v", body["expiresAt"])
	expiresAt, err := time.Parse(time.RFC3339Nano, expiresAtRaw)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(7*24*time.Hour), expiresAt, time.Minute)
}

func TestCreateShareLinkForeignGraph(t *testing.T) {
	srv, store := newTestServer(t)
	owner := seedUser(store, "ada@example.com", model.PlanFree)
	intruder := seedUser(store, "eve@example.com", model.PlanFree)
	graph := seedGraph(store, owner.ID, "private", time.Hour)
	token, _ := signIn(t, srv, store, intruder.ID)

	rec := doRequest(t, srv, http.MethodPost, "/graphs/"+graph.ID+"/share", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody(t, rec)["error"])
}

// Resolution is unauthenticated; possession of a live token is the credential.
func TestResolveShare(t *testing.T) {
	srv, store := newTestServer(t)
	user := seedUser(store, "ada@example.com", model.PlanFree)
	graph := seedGraph(store, user.ID, "public roadmap", time.Hour)
	share := seedShareToken(store, graph.ID, user.ID, time.Now().UTC().Add(24*time.Hour))

	rec := doRequest(t, srv, http.MethodGet, "/share/"+share.Token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, graph.ID, body["id"])
	assert.Equal(t, "public roadmap", body["title"])
	_, leaked := body["userId"]
	assert.False(t, leaked, "shared projection must not name the owner")
}

func TestResolveShareExpiredOrUnknown(t *testing.T) {
	srv, store := newTestServer(t)
	user := seedUser(store, "ada@example.com", model.PlanFree)
	graph := seedGraph(store, user.ID, "stale", time.Hour)
	expired := seedShareToken(store, graph.ID, user.ID, time.Now().UTC().Add(-time.Minute))

	rec := doRequest(t, srv, http.MethodGet, "/share/"+expired.Token, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/share/no-such-token", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody(t, rec)["error"])
}

func TestListShareLinksCarriesGraphTitle(t *testing.T) {
	srv, store := newTestServer(t)
	user := seedUser(store, "ada@example.com", model.PlanFree)
	token, _ := signIn(t, srv, store, user.ID)
	graph := seedGraph(store, user.ID, "quarterly plan", time.Hour)
	seedShareToken(store, graph.ID, user.ID, time.Now().UTC().Add(24*time.Hour))

	rec := doRequest(t, srv, http.MethodGet, "/share-links", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var links []shareLinkResponse
	require.NoError(t, jsonUnmarshal(rec, &links))
	require.Len(t, links, 1)
	assert.Equal(t, graph.ID, links[0].GraphID)
	assert.Equal(t, "quarterly plan", links[0].GraphTitle)
	assert.NotEmpty(t, links[0].Token)
}

func TestRevokeShareLink(t *testing.T) {
	srv, store := newTestServer(t)
	user := seedUser(store, "ada@example.com", model.PlanFree)
	token, _ := signIn(t, srv, store, user.ID)
	graph := seedGraph(store, user.ID, "shared", time.Hour)
	share := seedShareToken(store, graph.ID, user.ID, time.Now().UTC().Add(24*time.Hour))

	rec := doRequest(t, srv, http.MethodDelete, "/share-links/"+share.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "revoked", decodeBody(t, rec)["status"])

	rec = doRequest(t, srv, http.MethodGet, "/share/"+share.Token, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code, "revoked link must stop resolving")

	rec = doRequest(t, srv, http.MethodDelete, "/share-links/"+share.ID, token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
