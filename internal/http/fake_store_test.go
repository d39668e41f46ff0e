package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/diagraph/accounts/internal/model"
	"github.com/diagraph/accounts/internal/repository"
)

// fakeStore is a mutex-guarded in-memory Store with the same observable
// semantics as the Postgres implementation: sentinel errors, cascade rules,
// the one-pending-deletion invariant and atomic quota-guarded inserts.
// failures injects an error for a named method to drive degraded paths.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]model.User
	profiles  map[string]model.Profile
	graphs    map[string]model.Graph
	templates map[string]model.NodeTemplate
	shares    map[string]model.ShareToken
	sessions  map[string]model.Session
	accounts  map[string]model.OAuthAccount
	prefs     map[string]model.EmailPreferences
	deletions map[string]model.DeletionRequest
	secrets   map[string]string
	failures  map[string]error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]model.User),
		profiles:  make(map[string]model.Profile),
		graphs:    make(map[string]model.Graph),
		templates: make(map[string]model.NodeTemplate),
		shares:    make(map[string]model.ShareToken),
		sessions:  make(map[string]model.Session),
		accounts:  make(map[string]model.OAuthAccount),
		prefs:     make(map[string]model.EmailPreferences),
		deletions: make(map[string]model.DeletionRequest),
		secrets:   make(map[string]string),
		failures:  make(map[string]error),
	}
}

func (f *fakeStore) failWith(method string, err error) {
	f.mu.Lock()
	f.failures[method] = err
	f.mu.Unlock()
}

func (f *fakeStore) failure(method string) error {
	return f.failures[method]
}

func (f *fakeStore) GetUserByID(_ context.Context, userID string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("GetUserByID"); err != nil {
		return model.User{}, err
	}
	user, ok := f.users[userID]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("GetUserByEmail"); err != nil {
		return model.User{}, err
	}
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeStore) UpdateUser(_ context.Context, userID string, name string, image *string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	user.Name = name
	user.Image = image
	user.UpdatedAt = time.Now().UTC()
	f.users[userID] = user
	return user, nil
}

func (f *fakeStore) GetTwoFactorSecret(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	secret, ok := f.secrets[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return secret, nil
}

func (f *fakeStore) EnsureProfile(_ context.Context, profile model.Profile) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("EnsureProfile"); err != nil {
		return model.Profile{}, err
	}
	if existing, ok := f.profiles[profile.UserID]; ok {
		return existing, nil
	}
	f.profiles[profile.UserID] = profile
	return profile, nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("GetProfile"); err != nil {
		return model.Profile{}, err
	}
	profile, ok := f.profiles[userID]
	if !ok {
		return model.Profile{}, repository.ErrNotFound
	}
	return profile, nil
}

func (f *fakeStore) CreateGraphWithinLimit(_ context.Context, graph model.Graph, limit int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("CreateGraphWithinLimit"); err != nil {
		return false, err
	}
	count := 0
	for _, g := range f.graphs {
		if g.UserID == graph.UserID {
			count++
		}
	}
	if count >= limit {
		return false, nil
	}
	f.graphs[graph.ID] = graph
	return true, nil
}

func (f *fakeStore) ListGraphs(_ context.Context, userID string) ([]model.Graph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("ListGraphs"); err != nil {
		return nil, err
	}
	var graphs []model.Graph
	for _, g := range f.graphs {
		if g.UserID == userID {
			graphs = append(graphs, g)
		}
	}
	sort.Slice(graphs, func(i, j int) bool { return graphs[i].CreatedAt.After(graphs[j].CreatedAt) })
	return graphs, nil
}

func (f *fakeStore) GetGraph(_ context.Context, graphID, userID string) (model.Graph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.graphs[graphID]
	if !ok || g.UserID != userID {
		return model.Graph{}, repository.ErrNotFound
	}
	return g, nil
}

func (f *fakeStore) UpdateGraph(_ context.Context, graph model.Graph) (model.Graph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.graphs[graph.ID]
	if !ok || existing.UserID != graph.UserID {
		return model.Graph{}, repository.ErrNotFound
	}
	existing.Title = graph.Title
	existing.Data = graph.Data
	existing.UpdatedAt = time.Now().UTC()
	f.graphs[graph.ID] = existing
	return existing, nil
}

func (f *fakeStore) DeleteGraph(_ context.Context, graphID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.graphs[graphID]
	if !ok || g.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.graphs, graphID)
	f.cascadeGraphLocked(graphID)
	return nil
}

// cascadeGraphLocked mirrors the share_tokens.graph_id ON DELETE CASCADE.
func (f *fakeStore) cascadeGraphLocked(graphID string) {
	for id, share := range f.shares {
		if share.GraphID == graphID {
			delete(f.shares, id)
		}
	}
}

func (f *fakeStore) CountGraphs(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("CountGraphs"); err != nil {
		return 0, err
	}
	count := 0
	for _, g := range f.graphs {
		if g.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CreateTemplateWithinLimit(_ context.Context, template model.NodeTemplate, limit int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("CreateTemplateWithinLimit"); err != nil {
		return false, err
	}
	count := 0
	for _, t := range f.templates {
		if t.UserID == template.UserID {
			count++
		}
	}
	if count >= limit {
		return false, nil
	}
	f.templates[template.ID] = template
	return true, nil
}

func (f *fakeStore) ListTemplates(_ context.Context, userID string) ([]model.NodeTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var templates []model.NodeTemplate
	for _, t := range f.templates {
		if t.UserID == userID {
			templates = append(templates, t)
		}
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].CreatedAt.After(templates[j].CreatedAt) })
	return templates, nil
}

func (f *fakeStore) DeleteTemplate(_ context.Context, templateID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[templateID]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.templates, templateID)
	return nil
}

func (f *fakeStore) CountTemplates(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("CountTemplates"); err != nil {
		return 0, err
	}
	count := 0
	for _, t := range f.templates {
		if t.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CreateShareToken(_ context.Context, token model.ShareToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("CreateShareToken"); err != nil {
		return err
	}
	f.shares[token.ID] = token
	return nil
}

func (f *fakeStore) ResolveSharedGraph(_ context.Context, token string, now time.Time) (model.Graph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, share := range f.shares {
		if share.Token == token && share.ExpiresAt.After(now) {
			if g, ok := f.graphs[share.GraphID]; ok {
				return g, nil
			}
		}
	}
	return model.Graph{}, repository.ErrNotFound
}

func (f *fakeStore) ListShareTokens(_ context.Context, userID string) ([]model.ShareToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("ListShareTokens"); err != nil {
		return nil, err
	}
	var tokens []model.ShareToken
	for _, share := range f.shares {
		if share.UserID == userID {
			if g, ok := f.graphs[share.GraphID]; ok {
				share.GraphTitle = g.Title
			}
			tokens = append(tokens, share)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].CreatedAt.After(tokens[j].CreatedAt) })
	return tokens, nil
}

func (f *fakeStore) DeleteShareToken(_ context.Context, tokenID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	share, ok := f.shares[tokenID]
	if !ok || share.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.shares, tokenID)
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, sessionID string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return model.Session{}, repository.ErrNotFound
	}
	return session, nil
}

func (f *fakeStore) ListActiveSessions(_ context.Context, userID string, now time.Time) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("ListActiveSessions"); err != nil {
		return nil, err
	}
	var sessions []model.Session
	for _, sess := range f.sessions {
		if sess.UserID == userID && sess.ExpiresAt.After(now) {
			sessions = append(sessions, sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.Before(sessions[j].CreatedAt) })
	return sessions, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, sessionID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok || session.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeStore) DeleteOtherSessions(_ context.Context, userID, currentSessionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var revoked int64
	for id, sess := range f.sessions {
		if sess.UserID == userID && id != currentSessionID {
			delete(f.sessions, id)
			revoked++
		}
	}
	return revoked, nil
}

func (f *fakeStore) GetEmailPreferences(_ context.Context, userID string) (model.EmailPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("GetEmailPreferences"); err != nil {
		return model.EmailPreferences{}, err
	}
	prefs, ok := f.prefs[userID]
	if !ok {
		return model.EmailPreferences{}, repository.ErrNotFound
	}
	return prefs, nil
}

func (f *fakeStore) UpsertEmailPreferences(_ context.Context, prefs model.EmailPreferences) (model.EmailPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.prefs[prefs.UserID]; ok {
		existing.MarketingEmail = prefs.MarketingEmail
		existing.ProductUpdates = prefs.ProductUpdates
		if existing.UnsubscribedAt == nil {
			existing.UnsubscribedAt = prefs.UnsubscribedAt
		}
		existing.UpdatedAt = prefs.UpdatedAt
		f.prefs[prefs.UserID] = existing
		return existing, nil
	}
	f.prefs[prefs.UserID] = prefs
	return prefs, nil
}

func (f *fakeStore) ListOAuthAccounts(_ context.Context, userID string) ([]model.OAuthAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("ListOAuthAccounts"); err != nil {
		return nil, err
	}
	var accounts []model.OAuthAccount
	for _, a := range f.accounts {
		if a.UserID == userID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}

func (f *fakeStore) SubmitDeletionRequest(_ context.Context, request model.DeletionRequest) (model.DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("SubmitDeletionRequest"); err != nil {
		return model.DeletionRequest{}, err
	}
	for _, existing := range f.deletions {
		if existing.UserID != nil && request.UserID != nil &&
			*existing.UserID == *request.UserID && existing.Status == model.DeletionPending {
			return model.DeletionRequest{}, repository.ErrDuplicatePending
		}
	}
	f.deletions[request.ID] = request
	for id, g := range f.graphs {
		if g.UserID == *request.UserID {
			delete(f.graphs, id)
			f.cascadeGraphLocked(id)
		}
	}
	delete(f.prefs, *request.UserID)
	return request, nil
}

func (f *fakeStore) CancelDeletionRequest(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("CancelDeletionRequest"); err != nil {
		return err
	}
	var newest *model.DeletionRequest
	for id := range f.deletions {
		req := f.deletions[id]
		if req.UserID != nil && *req.UserID == userID && req.Status == model.DeletionPending {
			if newest == nil || req.CreatedAt.After(newest.CreatedAt) {
				copyReq := req
				newest = &copyReq
			}
		}
	}
	if newest != nil {
		newest.Status = model.DeletionCancelled
		f.deletions[newest.ID] = *newest
	}
	return nil
}

func (f *fakeStore) GetPendingDeletionRequest(_ context.Context, userID string) (model.DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *model.DeletionRequest
	for id := range f.deletions {
		req := f.deletions[id]
		if req.UserID != nil && *req.UserID == userID && req.Status == model.DeletionPending {
			if newest == nil || req.CreatedAt.After(newest.CreatedAt) {
				copyReq := req
				newest = &copyReq
			}
		}
	}
	if newest == nil {
		return model.DeletionRequest{}, repository.ErrNotFound
	}
	return *newest, nil
}

func (f *fakeStore) ListDeletionRequests(_ context.Context) ([]model.DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var requests []model.DeletionRequest
	for _, req := range f.deletions {
		requests = append(requests, req)
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].CreatedAt.After(requests[j].CreatedAt) })
	return requests, nil
}

func (f *fakeStore) ProcessDeletionRequest(_ context.Context, requestID string, now time.Time) (model.DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.deletions[requestID]
	if !ok {
		return model.DeletionRequest{}, repository.ErrNotFound
	}
	if req.Status != model.DeletionPending {
		return req, repository.ErrNotPending
	}
	if req.UserID != nil {
		f.deleteUserLocked(*req.UserID)
		req = f.deletions[requestID]
	}
	req.Status = model.DeletionProcessed
	req.ProcessedAt = &now
	f.deletions[requestID] = req
	return req, nil
}

// deleteUserLocked mirrors the users FK graph: everything cascades except
// deletion_requests.user_id, which is set to NULL.
func (f *fakeStore) deleteUserLocked(userID string) {
	delete(f.users, userID)
	delete(f.profiles, userID)
	delete(f.prefs, userID)
	delete(f.secrets, userID)
	for id, g := range f.graphs {
		if g.UserID == userID {
			delete(f.graphs, id)
			f.cascadeGraphLocked(id)
		}
	}
	for id, t := range f.templates {
		if t.UserID == userID {
			delete(f.templates, id)
		}
	}
	for id, sh := range f.shares {
		if sh.UserID == userID {
			delete(f.shares, id)
		}
	}
	for id, sess := range f.sessions {
		if sess.UserID == userID {
			delete(f.sessions, id)
		}
	}
	for id, a := range f.accounts {
		if a.UserID == userID {
			delete(f.accounts, id)
		}
	}
	for id, req := range f.deletions {
		if req.UserID != nil && *req.UserID == userID {
			req.UserID = nil
			f.deletions[id] = req
		}
	}
}

func (f *fakeStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var swept int64
	for id, sess := range f.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(f.sessions, id)
			swept++
		}
	}
	return swept, nil
}

func (f *fakeStore) DeleteExpiredShareTokens(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var swept int64
	for id, share := range f.shares {
		if !share.ExpiresAt.After(now) {
			delete(f.shares, id)
			swept++
		}
	}
	return swept, nil
}
