package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/llamino/UrlShortener/internal/models"
)

// LinkRepository defines the data-access methods for links and campaigns.
type LinkRepository interface {
	CreateLink(link *models.Link) error
	UpdateLink(link *models.Link) error
	GetLinkByShortCode(shortCode string) (*models.Link, error)
	GetLinkByOriginalURL(originalURL string, campaignID uint) (*models.Link, error)
	ShortCodeExists(shortCode string) (bool, error)
	GetPopularLinks(minClicks uint) ([]models.Link, error)

	// ApplyClickCounts atomically adds each pending count to its link's
	// ClickCount inside a single transaction spanning every pair. Either all
	// increments of a reconciliation cycle land, or none do.
	ApplyClickCounts(counts map[string]int64) error

	GetCampaignByID(id uint) (*models.Campaign, error)
	GetOrCreateCampaign(name string) (*models.Campaign, error)
}

// GormLinkRepository is the LinkRepository implementation using GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates and returns a new GormLinkRepository instance.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// CreateLink inserts a new link into the database.
func (r *GormLinkRepository) CreateLink(link *models.Link) error {
	if err := r.db.Create(link).Error; err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// UpdateLink persists changes to an existing link.
func (r *GormLinkRepository) UpdateLink(link *models.Link) error {
	if err := r.db.Save(link).Error; err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}
	return nil
}

// GetLinkByShortCode retrieves a link from the database using its short code.
func (r *GormLinkRepository) GetLinkByShortCode(shortCode string) (*models.Link, error) {
	var link models.Link
	if err := r.db.Where("short_code = ?", shortCode).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// GetLinkByOriginalURL retrieves the link for a (canonical URL, campaign)
// pair, the identity used for duplicate detection on the shorten path.
func (r *GormLinkRepository) GetLinkByOriginalURL(originalURL string, campaignID uint) (*models.Link, error) {
	var link models.Link
	err := r.db.Where("original_url = ? AND campaign_id = ?", originalURL, campaignID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ShortCodeExists reports whether a short code is already assigned.
func (r *GormLinkRepository) ShortCodeExists(shortCode string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Link{}).Where("short_code = ?", shortCode).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check short code existence: %w", err)
	}
	return count > 0, nil
}

// GetPopularLinks returns all active links whose durable click count has
// reached minClicks. Used by the cache warmer.
func (r *GormLinkRepository) GetPopularLinks(minClicks uint) ([]models.Link, error) {
	var links []models.Link
	err := r.db.Where("click_count >= ? AND is_active = ?", minClicks, true).Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve popular links: %w", err)
	}
	return links, nil
}

// ApplyClickCounts folds a drained accumulator snapshot into the links table.
// Each update is a relative `click_count = click_count + ?` so concurrent
// reconciliation with other writers can't lose increments, and the whole
// snapshot is applied inside one transaction.
func (r *GormLinkRepository) ApplyClickCounts(counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for originalURL, pending := range counts {
			if pending <= 0 {
				continue
			}
			result := tx.Model(&models.Link{}).
				Where("original_url = ?", originalURL).
				Update("click_count", gorm.Expr("click_count + ?", pending))
			if result.Error != nil {
				return result.Error
			}
			// Zero rows means the link was removed administratively since the
			// clicks were accumulated. Not an error: the count is simply
			// dropped with its link.
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply click counts: %w", err)
	}
	return nil
}

// GetCampaignByID retrieves a campaign by its primary key.
func (r *GormLinkRepository) GetCampaignByID(id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.First(&campaign, id).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

// GetOrCreateCampaign returns the campaign with the given name, creating it
// on first reference.
func (r *GormLinkRepository) GetOrCreateCampaign(name string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.Where("name = ?", name).First(&campaign).Error
	if err == nil {
		return &campaign, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up campaign %q: %w", name, err)
	}

	campaign = models.Campaign{Name: name, IsActive: true, UUID: newUUID()}
	if err := r.db.Create(&campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create campaign %q: %w", name, err)
	}
	return &campaign, nil
}
