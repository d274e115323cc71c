package store

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// List lifecycle statuses.
const (
	ListStatusDraft     = "draft"
	ListStatusShared    = "shared"
	ListStatusCompleted = "completed"
)

type List struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item statuses a shopkeeper or owner can set.
const (
	ItemStatusToBuy       = "to_buy"
	ItemStatusInProgress  = "in_progress"
	ItemStatusDone        = "done"
	ItemStatusUnavailable = "unavailable"
	ItemStatusSubstituted = "substituted"
)

type Item struct {
	ID        string    `json:"id"`
	ListID    string    `json:"listId"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Unit      string    `json:"unit,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Share delegation statuses. A list has at most one active share; creating a
// new share revokes the previous one first.
const (
	ShareStatusActive  = "active"
	ShareStatusRevoked = "revoked"
)

type Share struct {
	ID             string     `json:"id"`
	ListID         string     `json:"listId"`
	Token          string     `json:"shareToken"`
	Status         string     `json:"status"`
	ShopkeeperName string     `json:"shopkeeperName,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
