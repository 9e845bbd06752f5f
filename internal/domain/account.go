package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Provider is the party that issued a LinkedAccount credential. One Google
// account feeds three sources (Drive, Gmail, Photos).
type Provider string

const (
	ProviderGoogle  Provider = "google"
	ProviderDropbox Provider = "dropbox"
)

// PrimarySource is the source synced when a caller names none.
func (p Provider) PrimarySource() StorageType {
	switch p {
	case ProviderGoogle:
		return StorageGoogleDrive
	case ProviderDropbox:
		return StorageDropbox
	default:
		return ""
	}
}

// LinkedAccount is created and refreshed by the OAuth collaborator; indexing
// only reads it and stamps LastSyncedAt.
type LinkedAccount struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Provider      Provider       `gorm:"column:provider;size:50;not null;index" json:"provider"`
	ExternalEmail string         `gorm:"column:external_email;size:255;not null" json:"external_email"`
	CredentialRef string         `gorm:"column:credential_ref;type:text;not null" json:"-"`
	Scopes        datatypes.JSON `gorm:"column:scopes" json:"scopes,omitempty"`
	LastSyncedAt  *time.Time     `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (LinkedAccount) TableName() string { return "linked_account" }

func (a *LinkedAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Owner is owned by the auth collaborator; only the id is used here.
type Owner struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Owner) TableName() string { return "owner" }
