package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"vehiclesense/internal/clients"
	"vehiclesense/internal/models"
	"vehiclesense/internal/repository"
)

// OwnerStore is the owner cache persistence contract. FindByPlate reports a
// miss with repository.ErrOwnerNotFound.
type OwnerStore interface {
	FindByPlate(ctx context.Context, plate string) (*models.OwnerRecord, error)
	Upsert(ctx context.Context, rec *models.OwnerRecord) (*models.OwnerRecord, error)
}

// PlateLookupClient fetches ownership data from the external registry.
type PlateLookupClient interface {
	LookupPlate(ctx context.Context, plate string) (*clients.OwnerLookup, error)
}

// OwnerDirectory resolves plates to ownership data, caching results in the
// owner store. External lookup failures never surface: the directory always
// hands back some OwnerRecord, synthesizing a placeholder when needed.
type OwnerDirectory struct {
	store      OwnerStore
	lookup     PlateLookupClient
	refreshTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewOwnerDirectory builds the directory. lookup may be nil when external
// lookup is disabled. refreshTTL of zero keeps cached entries forever;
// a positive value re-fetches entries whose last_checked is older.
func NewOwnerDirectory(store OwnerStore, lookup PlateLookupClient, refreshTTL time.Duration, logger *zap.Logger) *OwnerDirectory {
	return &OwnerDirectory{
		store:      store,
		lookup:     lookup,
		refreshTTL: refreshTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Resolve returns ownership data for an already-normalized plate. On cache
// miss (or a stale entry when a refresh TTL is configured) it fetches from
// the registry, falls back to a deterministic placeholder on any fetch
// failure, and persists the result before returning. Only storage errors
// propagate.
func (d *OwnerDirectory) Resolve(ctx context.Context, plate string) (*models.OwnerRecord, error) {
	cached, err := d.store.FindByPlate(ctx, plate)
	if err == nil {
		if d.refreshTTL == 0 || d.now().Sub(cached.LastChecked) <= d.refreshTTL {
			return cached, nil
		}
		d.logger.Debug("owner cache entry stale, re-fetching", zap.String("plate", plate))
	} else if !errors.Is(err, repository.ErrOwnerNotFound) {
		return nil, err
	}

	rec := d.fetch(ctx, plate)
	rec.LastChecked = d.now().UTC()
	return d.store.Upsert(ctx, rec)
}

func (d *OwnerDirectory) fetch(ctx context.Context, plate string) *models.OwnerRecord {
	if d.lookup == nil {
		return placeholderOwner(plate)
	}

	lookup, err := d.lookup.LookupPlate(ctx, plate)
	if err != nil {
		d.logger.Warn("excise lookup failed, using placeholder",
			zap.String("plate", plate),
			zap.Error(err))
		return placeholderOwner(plate)
	}

	return &models.OwnerRecord{
		PlateNumber:      plate,
		OwnerName:        lookup.OwnerName,
		VehicleModel:     lookup.VehicleModel,
		RegistrationDate: lookup.RegistrationDate,
		RawData:          lookup.RawData,
	}
}

func placeholderOwner(plate string) *models.OwnerRecord {
	return &models.OwnerRecord{
		PlateNumber:  plate,
		OwnerName:    "Owner of " + plate,
		VehicleModel: "Unknown Model",
		RawData:      `{"source":"mock"}`,
	}
}
