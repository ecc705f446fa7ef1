package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/llamino/UrlShortener/internal/models"
	"github.com/llamino/UrlShortener/internal/repository"
)

// testEnv wires the service layer against an in-memory SQLite database, the
// same way the server command does against the real one.
type testEnv struct {
	db        *gorm.DB
	linkRepo  repository.LinkRepository
	clickRepo repository.ClickRepository
	blockRepo repository.BlockRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Every connection to :memory: is its own database; pin the pool to one
	// connection so all queries see the migrated schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Campaign{}, &models.Link{}, &models.ClickLog{}, &models.BlockedIP{}))

	return &testEnv{
		db:        db,
		linkRepo:  repository.NewLinkRepository(db),
		clickRepo: repository.NewClickRepository(db),
		blockRepo: repository.NewBlockRepository(db),
	}
}

func (e *testEnv) seedCampaign(t *testing.T, name string) *models.Campaign {
	t.Helper()

	campaign, err := e.linkRepo.GetOrCreateCampaign(name)
	require.NoError(t, err)
	return campaign
}

func (e *testEnv) seedBlock(t *testing.T, entry models.BlockedIP) {
	t.Helper()

	if entry.UUID == uuid.Nil {
		entry.UUID = uuid.New()
	}
	entry.IsActive = true
	require.NoError(t, e.db.Create(&entry).Error)
}
