package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BlockedIP stores an abuse-prevention entry for a single IP address. An entry
// either blocks the IP for every destination (IsBlockedForAllURLs) or only for
// the canonical URLs listed in BlockedLinks. Entries are mutated only by
// administrative action and read on every cache-missing redirect, which is why
// the abuse guard caches positive verdicts.
type BlockedIP struct {
	ID   uint      `gorm:"primaryKey"`
	UUID uuid.UUID `gorm:"type:text;uniqueIndex;not null"`

	IPAddress string `gorm:"size:100;uniqueIndex;not null"`

	// IsBlockedForAllURLs blocks every redirect from this IP regardless of
	// destination.
	IsBlockedForAllURLs bool `gorm:"default:false"`

	// IsUnblockedForEveryURL marks an entry whose per-URL restrictions have
	// been lifted without deleting the row (audit trail stays).
	IsUnblockedForEveryURL bool `gorm:"default:true"`

	// BlockedLinks is a JSON array of canonical original URLs this IP may not
	// be redirected to.
	BlockedLinks string `gorm:"type:text;default:'[]'"`

	CreatedBy string    `gorm:"size:100"`
	IsActive  bool      `gorm:"default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// BlocksURL reports whether this entry blocks the given canonical URL
// specifically. A malformed BlockedLinks list blocks nothing rather than
// everything.
func (b *BlockedIP) BlocksURL(originalURL string) bool {
	if b.BlockedLinks == "" {
		return false
	}
	var links []string
	if err := json.Unmarshal([]byte(b.BlockedLinks), &links); err != nil {
		return false
	}
	for _, link := range links {
		if link == originalURL {
			return true
		}
	}
	return false
}
