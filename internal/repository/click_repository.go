package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/llamino/UrlShortener/internal/models"
)

// ClickRepository defines the data-access methods for click logs.
type ClickRepository interface {
	CreateClick(click *models.ClickLog) error
	GetClicksByOriginalURL(originalURL string) ([]models.ClickLog, error)
	CountClicksByOriginalURL(originalURL string) (int64, error)
}

// GormClickRepository is the ClickRepository implementation using GORM.
type GormClickRepository struct {
	db *gorm.DB
}

// NewClickRepository creates and returns a new GormClickRepository instance.
func NewClickRepository(db *gorm.DB) *GormClickRepository {
	return &GormClickRepository{db: db}
}

// CreateClick inserts a new click log record into the database.
func (r *GormClickRepository) CreateClick(click *models.ClickLog) error {
	if err := r.db.Create(click).Error; err != nil {
		return fmt.Errorf("failed to create click log: %w", err)
	}
	return nil
}

// GetClicksByOriginalURL retrieves all click logs recorded for a canonical
// URL, newest first. Feeds the report endpoint.
func (r *GormClickRepository) GetClicksByOriginalURL(originalURL string) ([]models.ClickLog, error) {
	var clicks []models.ClickLog
	err := r.db.Where("original_url = ?", originalURL).Order("created_at DESC").Find(&clicks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve clicks for %s: %w", originalURL, err)
	}
	return clicks, nil
}

// CountClicksByOriginalURL counts the click log rows for a canonical URL.
func (r *GormClickRepository) CountClicksByOriginalURL(originalURL string) (int64, error) {
	var count int64
	err := r.db.Model(&models.ClickLog{}).Where("original_url = ?", originalURL).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks for %s: %w", originalURL, err)
	}
	return count, nil
}
