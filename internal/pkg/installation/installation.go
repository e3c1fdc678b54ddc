// Package installation records the first time a store's widget loads.
package installation

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
)

// Status is the installation state after a ping.
type Status struct {
	StoreID      string    `json:"-"`
	FirstInstall bool      `json:"firstInstall"`
	InstalledAt  time.Time `json:"installedAt"`
}

// Tracker flips the one-way installed latch.
type Tracker struct {
	stores repository.StoreRepository
	now    func() time.Time
}

// NewTracker creates a tracker. A nil clock uses time.Now.
func NewTracker(stores repository.StoreRepository, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{stores: stores, now: now}
}

// Ping marks the store installed on the first call. Later calls leave the stored
// timestamp untouched and report it back.
func (t *Tracker) Ping(ctx context.Context, storeRef string) (*Status, error) {
	store, err := quota.ResolveStore(ctx, t.stores, storeRef)
	if err != nil {
		return nil, err
	}

	if store.Installed && store.InstalledAt != nil {
		return &Status{StoreID: store.ID, InstalledAt: *store.InstalledAt}, nil
	}

	at := t.now().UTC()
	first, err := t.stores.MarkInstalled(ctx, store.ID, at)
	if err != nil {
		return nil, &quota.StorageError{Op: "mark installed", Err: err}
	}
	if first {
		if store.Installed {
			// installed before timestamps were recorded; only the time was filled in
			log.Infof("[Installation] Store %s backfilled installed_at", store.ID)
			return &Status{StoreID: store.ID, InstalledAt: at}, nil
		}
		log.Infof("[Installation] Store %s (%s) installed the widget", store.ID, store.ShopifyDomain)
		return &Status{StoreID: store.ID, FirstInstall: true, InstalledAt: at}, nil
	}

	// Lost the race to a concurrent ping; report what that one wrote.
	current, err := t.stores.GetByID(ctx, store.ID)
	if err != nil {
		return nil, &quota.StorageError{Op: "reload store", Err: err}
	}
	status := &Status{StoreID: current.ID}
	if current.InstalledAt != nil {
		status.InstalledAt = *current.InstalledAt
	}
	return status, nil
}
