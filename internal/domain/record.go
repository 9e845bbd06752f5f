package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StorageType string

const (
	StorageLocal        StorageType = "local"
	StorageGoogleDrive  StorageType = "google_drive"
	StorageDropbox      StorageType = "dropbox"
	StorageGmail        StorageType = "gmail"
	StorageGooglePhotos StorageType = "google_photos"
)

var storageTypes = map[StorageType]struct{}{
	StorageLocal:        {},
	StorageGoogleDrive:  {},
	StorageDropbox:      {},
	StorageGmail:        {},
	StorageGooglePhotos: {},
}

func (s StorageType) Valid() bool {
	_, ok := storageTypes[s]
	return ok
}

func (s StorageType) IsCloud() bool {
	return s.Valid() && s != StorageLocal
}

// Filetype sentinels.
const (
	FiletypeFolder  = "folder"
	FiletypeUnknown = "unknown"
	FiletypeImage   = "image"
)

// IndexedRecord is one file or folder from any source. CanonicalPath is
// unique across owners and sources; CloudFileID is unique when set.
type IndexedRecord struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	AccountID *uuid.UUID `gorm:"type:uuid;index" json:"account_id,omitempty"`

	Filename      string      `gorm:"column:filename;size:255;not null" json:"filename"`
	CanonicalPath string      `gorm:"column:canonical_path;size:1024;not null;uniqueIndex" json:"canonical_path"`
	IsFolder      bool        `gorm:"column:is_folder;not null" json:"is_folder"`
	Filetype      string      `gorm:"column:filetype;size:255;not null;index" json:"filetype"`
	StorageType   StorageType `gorm:"column:storage_type;size:20;not null;index" json:"storage_type"`
	CloudFileID   *string     `gorm:"column:cloud_file_id;size:1024;uniqueIndex" json:"cloud_file_id,omitempty"`
	MimeType      *string     `gorm:"column:mime_type;size:1024" json:"mime_type,omitempty"`
	LastModified  *time.Time  `gorm:"column:last_modified" json:"last_modified,omitempty"`
	IsFavorite    bool        `gorm:"column:is_favorite;not null" json:"is_favorite"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (IndexedRecord) TableName() string { return "indexed_record" }

func (r *IndexedRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecordFilter drives the store-side scan used by search.
type RecordFilter struct {
	OwnerID          uuid.UUID
	StorageType      StorageType
	Filetype         string
	// FilenameContains is a case-insensitive substring; '*' matches any run.
	FilenameContains string
}

var pathSchemes = map[StorageType]string{
	StorageGoogleDrive:  "drive",
	StorageDropbox:      "dropbox",
	StorageGmail:        "gmail",
	StorageGooglePhotos: "photos",
}

// CloudPath builds the synthetic canonical path for a provider item, e.g.
// drive://<id> or dropbox:///<path_display>.
func CloudPath(st StorageType, ref string) string {
	scheme, ok := pathSchemes[st]
	if !ok {
		scheme = string(st)
	}
	return scheme + "://" + ref
}
