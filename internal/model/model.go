package model

import "time"

const (
	PlanFree = "free"
	PlanPlus = "plus"
)

type User struct {
	ID               string
	Email            string
	Name             string
	Image            *string
	Plan             string
	TwoFactorEnabled bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Profile struct {
	UserID        string
	Plan          string
	MaxGraphs     int
	RetentionDays int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Graph struct {
	ID        string
	UserID    string
	Title     string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

type NodeTemplate struct {
	ID        string
	UserID    string
	Name      string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ShareToken struct {
	ID         string
	GraphID    string
	UserID     string
	Token      string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	GraphTitle string
}

type Session struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
	UserAgent *string
	IPAddress *string
}

type OAuthAccount struct {
	ID                string
	UserID            string
	ProviderID        string
	ProviderAccountID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type EmailPreferences struct {
	UserID         string
	MarketingEmail bool
	ProductUpdates bool
	UnsubscribedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DeletionStatus is the lifecycle state of an account deletion request.
// Requests move pending -> processed or pending -> cancelled; both end states
// are terminal.
type DeletionStatus string

const (
	DeletionPending   DeletionStatus = "pending"
	DeletionProcessed DeletionStatus = "processed"
	DeletionCancelled DeletionStatus = "cancelled"
)

func (s DeletionStatus) Valid() bool {
	switch s {
	case DeletionPending, DeletionProcessed, DeletionCancelled:
		return true
	}
	return false
}

func (s DeletionStatus) Terminal() bool {
	return s == DeletionProcessed || s == DeletionCancelled
}

type DeletionRequest struct {
	ID          string
	UserID      *string
	Email       string
	Reason      string
	Status      DeletionStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
