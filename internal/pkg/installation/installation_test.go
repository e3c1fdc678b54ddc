package installation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BoostACart/app/models"
	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/database"
	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
)

func setup(t *testing.T) (*repository.Repositories, *models.Store) {
	t.Helper()
	repos := repository.NewRepositories(database.NewTestDB(t))
	store := &models.Store{Name: "Acme", ShopifyDomain: "acme.myshopify.com", Plan: "Free", MaxLeads: 50}
	require.NoError(t, repos.Store.Create(context.Background(), store))
	return repos, store
}

func TestPingIsOneWayLatch(t *testing.T) {
	repos, store := setup(t)

	clock := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	tracker := NewTracker(repos.Store, func() time.Time { return clock })

	first, err := tracker.Ping(context.Background(), store.ShopifyDomain)
	require.NoError(t, err)
	assert.True(t, first.FirstInstall)
	assert.True(t, first.InstalledAt.Equal(clock))

	clock = clock.Add(48 * time.Hour)
	second, err := tracker.Ping(context.Background(), store.ShopifyDomain)
	require.NoError(t, err)
	assert.False(t, second.FirstInstall)
	assert.True(t, second.InstalledAt.Equal(first.InstalledAt), "second ping must keep the first timestamp")

	reloaded, err := repos.Store.GetByID(context.Background(), store.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Installed)
	require.NotNil(t, reloaded.InstalledAt)
	assert.True(t, reloaded.InstalledAt.Equal(first.InstalledAt))
}

func TestPingAcceptsStoreID(t *testing.T) {
	repos, store := setup(t)
	tracker := NewTracker(repos.Store, nil)

	status, err := tracker.Ping(context.Background(), store.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ID, status.StoreID)
	assert.True(t, status.FirstInstall)
}

func TestPingUnknownStore(t *testing.T) {
	repos, _ := setup(t)
	tracker := NewTracker(repos.Store, nil)

	_, err := tracker.Ping(context.Background(), "missing.myshopify.com")
	assert.ErrorIs(t, err, quota.ErrStoreNotFound)
}

func TestPingBackfillsMissingTimestamp(t *testing.T) {
	db := database.NewTestDB(t)
	repos := repository.NewRepositories(db)
	ctx := context.Background()
	store := &models.Store{Name: "Legacy", ShopifyDomain: "legacy.myshopify.com", Plan: "Free", MaxLeads: 50}
	require.NoError(t, repos.Store.Create(ctx, store))
	require.NoError(t, db.Model(&models.Store{}).Where("id = ?", store.ID).
		Updates(map[string]interface{}{"installed": true, "installed_at": nil}).Error)

	clock := time.Date(2026, 10, 5, 7, 30, 0, 0, time.UTC)
	tracker := NewTracker(repos.Store, func() time.Time { return clock })

	status, err := tracker.Ping(ctx, store.ShopifyDomain)
	require.NoError(t, err)
	assert.False(t, status.FirstInstall)
	assert.False(t, status.InstalledAt.IsZero())
	assert.True(t, status.InstalledAt.Equal(clock))

	clock = clock.Add(time.Hour)
	again, err := tracker.Ping(ctx, store.ShopifyDomain)
	require.NoError(t, err)
	assert.True(t, again.InstalledAt.Equal(status.InstalledAt))
}
