package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plaasstop-backend/internal/model"
)

// UserService implements identity sync and profile retrieval.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService backed by the given database.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// SyncInput carries the fields of an identity sync request. ID and Email
// come from the verified bearer token, the rest from the request body.
type SyncInput struct {
	ID       string
	Email    string
	Role     string
	Name     string
	FarmName string
}

// Sync upserts the user record for an authenticated identity and, for
// vendors supplying a farm name, provisions their farm exactly once. Both
// writes run in one transaction so concurrent syncs for the same identity
// cannot provision duplicate farms. Returns whether a farm was created.
func (s *UserService) Sync(ctx context.Context, in SyncInput) (bool, error) {
	if !model.ValidRole(in.Role) {
		return false, ErrInvalidRole
	}
	if in.Name == "" {
		in.Name = "Anonymous"
	}

	farmCreated := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := model.User{
			ID:    in.ID,
			Email: in.Email,
			Role:  in.Role,
			Name:  in.Name,
		}
		// Insert-or-update by id; created_at survives, updated_at refreshes.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "role", "name", "updated_at"}),
		}).Create(&user).Error; err != nil {
			return fmt.Errorf("upsert user %s: %w", in.ID, err)
		}

		if in.Role != model.RoleVendor || in.FarmName == "" {
			return nil
		}

		var count int64
		if err := tx.Model(&model.Farm{}).Where("owner_id = ?", in.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("check existing farm for %s: %w", in.ID, err)
		}
		if count > 0 {
			return nil
		}

		ownerID := in.ID
		farm := model.Farm{
			Name:     in.FarmName,
			Type:     model.FarmTypeVendor,
			Status:   model.FarmStatusPending,
			Products: []string{},
			OwnerID:  &ownerID,
		}
		if err := tx.Create(&farm).Error; err != nil {
			return fmt.Errorf("provision farm for %s: %w", in.ID, err)
		}
		farmCreated = true
		return nil
	})
	return farmCreated, err
}

// Profile returns the user record for an identity plus, for vendors, the
// farm they own. Buyers always get a nil farm; so does a vendor whose farm
// has not been provisioned yet.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, *model.Farm, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	if user.Role != model.RoleVendor {
		return &user, nil, nil
	}

	var farm model.Farm
	err := s.db.WithContext(ctx).Where("owner_id = ?", userID).First(&farm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &user, nil, nil
		}
		return nil, nil, fmt.Errorf("load farm for %s: %w", userID, err)
	}
	return &user, &farm, nil
}
