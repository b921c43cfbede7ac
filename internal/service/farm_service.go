package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plaasstop-backend/internal/model"
	"plaasstop-backend/pkg/config"
)

// FarmService implements the proximity search and the claim workflow.
type FarmService struct {
	db              *gorm.DB
	searcher        farmSearcher
	defaultRadiusKm float64
}

// NewFarmService creates a FarmService using the search backend named in
// the geo configuration.
func NewFarmService(db *gorm.DB, cfg *config.GeoConfig) *FarmService {
	var searcher farmSearcher = postgisSearcher{}
	if cfg.Backend == config.GeoBackendGeohash {
		searcher = geohashSearcher{}
	}
	return &FarmService{
		db:              db,
		searcher:        searcher,
		defaultRadiusKm: cfg.DefaultRadiusKm,
	}
}

// Search returns all farms within radiusKm of the center, nearest first.
// A zero or negative radius falls back to the configured default.
func (s *FarmService) Search(ctx context.Context, lat, lng, radiusKm float64) ([]FarmResult, error) {
	if radiusKm <= 0 {
		radiusKm = s.defaultRadiusKm
	}
	return s.searcher.search(ctx, s.db, lat, lng, radiusKm)
}

// Claim transfers a lead farm to the given user and promotes the user to
// vendor. Both mutations run in one transaction with the farm row locked
// across the guard check, so two concurrent claims cannot both win: the
// loser observes the farm is no longer a lead and gets ErrFarmAlreadyClaimed.
func (s *FarmService) Claim(ctx context.Context, farmID uint, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() == "postgres" {
			// SQLite rejects FOR UPDATE; its single-writer lock already
			// serializes claims there.
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var farm model.Farm
		if err := query.First(&farm, farmID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFarmNotFound
			}
			return fmt.Errorf("load farm %d: %w", farmID, err)
		}

		if farm.Type != model.FarmTypeLead {
			return ErrFarmAlreadyClaimed
		}

		// Guarded update as a backstop: even without the row lock only one
		// writer can flip the farm out of the lead state.
		res := tx.Model(&model.Farm{}).
			Where("id = ? AND type = ?", farmID, model.FarmTypeLead).
			Updates(map[string]interface{}{
				"owner_id": userID,
				"type":     model.FarmTypeVendor,
				"status":   model.FarmStatusPendingVerification,
			})
		if res.Error != nil {
			return fmt.Errorf("claim farm %d: %w", farmID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrFarmAlreadyClaimed
		}

		promote := tx.Model(&model.User{}).
			Where("id = ?", userID).
			Update("role", model.RoleVendor)
		if promote.Error != nil {
			return fmt.Errorf("promote user %s: %w", userID, promote.Error)
		}
		if promote.RowsAffected == 0 {
			// No synced profile for this identity; roll back the farm
			// mutation rather than leave a vendor farm with a buyer owner.
			return ErrUserNotFound
		}

		return nil
	})
}
