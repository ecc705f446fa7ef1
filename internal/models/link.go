package models

import (
	"time"

	"github.com/google/uuid"
)

// Link statuses. A blocked or inactive link keeps its row and short code; only
// administrative actions change status, never the redirect path.
const (
	StatusActive   = "active"
	StatusBlocked  = "blocked"
	StatusInactive = "inactive"
)

// Campaign groups short links under a marketing campaign. Campaigns are
// created on demand (get-or-create by name) when a shorten request or import
// references them.
type Campaign struct {
	ID         uint      `gorm:"primaryKey"`
	UUID       uuid.UUID `gorm:"type:text;uniqueIndex;not null"`
	Name       string    `gorm:"size:100;uniqueIndex;not null"`
	Advertiser string    `gorm:"size:100"`
	IsActive   bool      `gorm:"default:true"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`

	// Extra holds free-form JSON metadata.
	Extra string `gorm:"type:text"`
}

// Link represents a shortened URL and its metadata. Its identity is the pair
// (canonical original URL, campaign): shortening the same URL twice for the
// same campaign returns the existing link instead of creating a new one.
//
// Invariants: the short code, once assigned, is immutable and globally unique;
// ClickCount only ever grows (the reconciliation job adds pending increments),
// except via explicit administrative reset. Links are never deleted on the hot
// path; deactivation happens through Status/IsActive.
type Link struct {
	ID uint `gorm:"primaryKey"`

	UUID uuid.UUID `gorm:"type:text;uniqueIndex;not null"`

	// OriginalURL is stored in canonical form (query string and fragment
	// stripped) so duplicate detection compares like with like.
	OriginalURL string `gorm:"not null"`

	// ShortCode is the signed, self-certifying public identifier. Nullable
	// until assigned at creation time; unique forever after.
	ShortCode string `gorm:"uniqueIndex"`

	CampaignID uint     `gorm:"index"`
	Campaign   Campaign `gorm:"foreignKey:CampaignID"`

	// CreatedBy optionally records which user created the link. User
	// management itself lives outside this service.
	CreatedBy string `gorm:"size:100"`

	Status   string `gorm:"size:15;default:active"`
	IsActive bool   `gorm:"default:true"`

	// ClickCount is the durable aggregate maintained by the reconciliation
	// job; between cycles the true total also includes pending increments in
	// the cache accumulator.
	ClickCount uint `gorm:"default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Extra string `gorm:"type:text"`
}
