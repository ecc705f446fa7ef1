package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/llamino/UrlShortener/internal/models"
)

// BlockRepository defines the data-access methods for IP block entries.
type BlockRepository interface {
	// GetActiveBlock fetches the active block entry for an IP so the caller
	// can inspect its fields. The boolean reports whether such an entry
	// exists; absence is the common case and not an error.
	GetActiveBlock(ip string) (*models.BlockedIP, bool, error)
}

// GormBlockRepository is the BlockRepository implementation using GORM.
type GormBlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates and returns a new GormBlockRepository instance.
func NewBlockRepository(db *gorm.DB) *GormBlockRepository {
	return &GormBlockRepository{db: db}
}

// GetActiveBlock retrieves the active BlockedIP row for the given address.
func (r *GormBlockRepository) GetActiveBlock(ip string) (*models.BlockedIP, bool, error) {
	var entry models.BlockedIP
	err := r.db.Where("ip_address = ? AND is_active = ?", ip, true).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up block entry for %s: %w", ip, err)
	}
	return &entry, true, nil
}
