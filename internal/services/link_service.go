// Package services contains the business logic layer for the URL shortener application
package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	customerrors "github.com/llamino/UrlShortener/internal/errors"
	"github.com/llamino/UrlShortener/internal/models"
	"github.com/llamino/UrlShortener/internal/repository"
	"github.com/llamino/UrlShortener/internal/shortcode"
)

// LinkService provides the business logic for creating and querying shortened
// links. It acts as an intermediary between the HTTP handlers / CLI commands
// and the data repositories.
type LinkService struct {
	linkRepo  repository.LinkRepository
	clickRepo repository.ClickRepository
	codec     *shortcode.Codec
}

// NewLinkService creates and returns a new instance of LinkService.
func NewLinkService(linkRepo repository.LinkRepository, clickRepo repository.ClickRepository, codec *shortcode.Codec) *LinkService {
	return &LinkService{
		linkRepo:  linkRepo,
		clickRepo: clickRepo,
		codec:     codec,
	}
}

// ShortenURL creates (or finds) the short link for a URL within a campaign.
//
// The URL is validated and canonicalized (query string and fragment dropped)
// before anything touches the database, so one destination maps to one
// canonical identity. If the (canonical URL, campaign) pair already has a
// link, that link is returned with created=false and nothing is written.
func (s *LinkService) ShortenURL(originalURL string, campaignID uint) (*models.Link, bool, error) {
	if !shortcode.IsValidURL(originalURL) {
		return nil, false, customerrors.ErrInvalidURL
	}

	canonicalURL, err := shortcode.Canonicalize(originalURL)
	if err != nil {
		return nil, false, customerrors.ErrInvalidURL
	}

	campaign, err := s.linkRepo.GetCampaignByID(campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, customerrors.ErrCampaignNotFound
		}
		return nil, false, fmt.Errorf("failed to look up campaign %d: %w", campaignID, err)
	}

	// Duplicate detection on the canonical identity.
	existing, err := s.linkRepo.GetLinkByOriginalURL(canonicalURL, campaign.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to check for existing link: %w", err)
	}

	shortCode, err := s.assignShortCode(canonicalURL)
	if err != nil {
		return nil, false, err
	}

	link := &models.Link{
		UUID:        uuid.New(),
		OriginalURL: canonicalURL,
		ShortCode:   shortCode,
		CampaignID:  campaign.ID,
		Status:      models.StatusActive,
		IsActive:    true,
	}
	if err := s.linkRepo.CreateLink(link); err != nil {
		return nil, false, fmt.Errorf("failed to create link: %w", err)
	}
	return link, true, nil
}

// assignShortCode encodes the canonical URL and verifies global uniqueness of
// the result. The codec is deterministic, so a collision means the same URL
// was already shortened under another campaign. One public code can only point
// at one link row, so that case is surfaced as a generation failure instead of
// violating the uniqueness invariant.
func (s *LinkService) assignShortCode(canonicalURL string) (string, error) {
	code := s.codec.Encode(canonicalURL)

	exists, err := s.linkRepo.ShortCodeExists(code)
	if err != nil {
		return "", fmt.Errorf("failed to check short code uniqueness: %w", err)
	}
	if exists {
		log.Printf("Short code for %s already assigned to another campaign's link", canonicalURL)
		return "", customerrors.ErrShortCodeGenerationFailed
	}
	return code, nil
}

// GetLinkByShortCode retrieves a link from the database using its short code.
func (s *LinkService) GetLinkByShortCode(shortCode string) (*models.Link, error) {
	link, err := s.linkRepo.GetLinkByShortCode(shortCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

// GetLinkStats retrieves reporting data for a short code: the link itself,
// its durable aggregate click count, and the individual click logs.
// The aggregate comes from the link row (maintained by the reconciliation
// job), not from counting log rows, so the two can briefly disagree between
// reconciliation cycles.
func (s *LinkService) GetLinkStats(shortCode string) (*models.Link, []models.ClickLog, error) {
	link, err := s.GetLinkByShortCode(shortCode)
	if err != nil {
		return nil, nil, err
	}

	clicks, err := s.clickRepo.GetClicksByOriginalURL(link.OriginalURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve click logs: %w", err)
	}
	return link, clicks, nil
}
