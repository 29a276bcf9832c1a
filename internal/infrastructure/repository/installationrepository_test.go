package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"boltstore/internal/domain/installation"
	"boltstore/internal/domain/installation/storetest"
	"boltstore/internal/infrastructure/persistence/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.InstallationModel{}))
	return db
}

func newTestStore(t *testing.T, db *gorm.DB, clientID *string, opts ...func(*InstallationRepositoryOptions)) *InstallationRepository {
	t.Helper()
	o := InstallationRepositoryOptions{
		DB:       db,
		ClientID: clientID,
	}
	for _, fn := range opts {
		fn(&o)
	}
	store, err := NewInstallationRepository(o)
	require.NoError(t, err)
	return store
}

func strPtr(s string) *string { return &s }

func TestInstallationRepositoryOrgWideLifecycle(t *testing.T) {
	db := openTestDB(t)
	runner := &storetest.Runner{
		Store:        newTestStore(t, db, nil),
		StoreClientA: newTestStore(t, db, strPtr("111.AAA")),
		StoreClientB: newTestStore(t, db, strPtr("111.BBB")),
	}
	runner.RunOrgWideInstallationTestCases(t)
}

func TestInstallationRepositoryTeamLevelLifecycle(t *testing.T) {
	db := openTestDB(t)
	runner := &storetest.Runner{
		Store:        newTestStore(t, db, nil),
		StoreClientA: newTestStore(t, db, strPtr("111.AAA")),
		StoreClientB: newTestStore(t, db, strPtr("111.BBB")),
	}
	runner.RunTeamLevelInstallationTestCases(t)
}

func TestInstallationRepositoryRequiresConnection(t *testing.T) {
	_, err := NewInstallationRepository(InstallationRepositoryOptions{})
	require.Error(t, err)
}

func TestInstallationRepositoryNonHistoricalUpsert(t *testing.T) {
	db := openTestDB(t)
	historical := false
	store := newTestStore(t, db, nil, func(o *InstallationRepositoryOptions) {
		o.HistoricalDataEnabled = &historical
	})
	ctx := context.Background()

	expiresAt := time.Now().Unix()
	first := storetest.DefaultDataProvider{}.BuildTeamInstallation(expiresAt)
	require.NoError(t, store.StoreInstallation(ctx, first))

	second := storetest.DefaultDataProvider{}.BuildTeamInstallation(expiresAt)
	second.Bot.Token = "xoxb-replaced"
	require.NoError(t, store.StoreInstallation(ctx, second))

	var count int64
	require.NoError(t, db.Model(&models.InstallationModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	fetched, err := store.FetchInstallation(ctx, second.Query())
	require.NoError(t, err)
	require.NotNil(t, fetched.Bot)
	assert.Equal(t, "xoxb-replaced", fetched.Bot.Token)
}

func TestInstallationRepositoryHistoricalKeepsAllRows(t *testing.T) {
	db := openTestDB(t)
	store := newTestStore(t, db, nil)
	ctx := context.Background()

	expiresAt := time.Now().Unix()
	inst := storetest.DefaultDataProvider{}.BuildTeamInstallation(expiresAt)
	require.NoError(t, store.StoreInstallation(ctx, inst))
	require.NoError(t, store.StoreInstallation(ctx, inst))

	var count int64
	require.NoError(t, db.Model(&models.InstallationModel{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestInstallationRepositoryTokenExpiryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := newTestStore(t, db, nil)
	ctx := context.Background()

	expiresAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()
	inst := storetest.DefaultDataProvider{}.BuildTeamInstallation(expiresAt)
	require.NoError(t, store.StoreInstallation(ctx, inst))

	fetched, err := store.FetchInstallation(ctx, inst.Query())
	require.NoError(t, err)
	require.NotNil(t, fetched.Bot)
	require.NotNil(t, fetched.Bot.ExpiresAt)
	assert.Equal(t, expiresAt, *fetched.Bot.ExpiresAt)
	require.NotNil(t, fetched.User.ExpiresAt)
	assert.Equal(t, expiresAt, *fetched.User.ExpiresAt)

	// The column itself holds the absolute timestamp.
	var row models.InstallationModel
	require.NoError(t, db.Order("id DESC").First(&row).Error)
	require.NotNil(t, row.BotTokenExpiresAt)
	assert.Equal(t, time.Unix(expiresAt, 0).UTC(), row.BotTokenExpiresAt.UTC())
}

func TestInstallationRepositoryCallbacks(t *testing.T) {
	db := openTestDB(t)
	var storedRows, fetchedRows int
	store := newTestStore(t, db, nil, func(o *InstallationRepositoryOptions) {
		o.OnStoreInstallation = func(ctx context.Context, row *models.InstallationModel, inst *installation.Installation) error {
			storedRows++
			row.TokenType = "custom"
			return nil
		}
		o.OnFetchInstallation = func(ctx context.Context, query installation.Query, row *models.InstallationModel, inst *installation.Installation) error {
			fetchedRows++
			return nil
		}
	})
	ctx := context.Background()

	inst := storetest.DefaultDataProvider{}.BuildTeamInstallation(time.Now().Unix())
	require.NoError(t, store.StoreInstallation(ctx, inst))

	fetched, err := store.FetchInstallation(ctx, inst.Query())
	require.NoError(t, err)
	assert.Equal(t, "custom", fetched.TokenType)
	assert.Equal(t, 1, storedRows)
	assert.Equal(t, 1, fetchedRows)
}

func TestInstallationRepositoryConnectionProvider(t *testing.T) {
	db := openTestDB(t)
	calls := 0
	store, err := NewInstallationRepository(InstallationRepositoryOptions{
		ConnectionProvider: func() (*gorm.DB, error) {
			calls++
			return db, nil
		},
	})
	require.NoError(t, err)
	ctx := context.Background()

	inst := storetest.DefaultDataProvider{}.BuildTeamInstallation(time.Now().Unix())
	require.NoError(t, store.StoreInstallation(ctx, inst))
	_, err = store.FetchInstallation(ctx, inst.Query())
	require.NoError(t, err)

	// The provided connection is cached across calls.
	assert.Equal(t, 1, calls)
}
