package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/shared"
	"github.com/opshub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetUser finds a user by ID
func (r *GormUserRepository) GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "User not found")
	}
	return model.ToDomain(), nil
}

// GetUserByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, shared.ErrNotFound
	}
	var model models.UserModel
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&model).Error; err != nil {
		return nil, translate(err, "User not found")
	}
	return model.ToDomain(), nil
}

// ListUsers returns every user, oldest first
func (r *GormUserRepository) ListUsers(ctx context.Context) ([]*identity.User, error) {
	var rows []models.UserModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]*identity.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, nil
}

// CreateUser inserts a user
func (r *GormUserRepository) CreateUser(ctx context.Context, user *identity.User) error {
	if user.Email != "" {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.UserModel{}).
			Where("LOWER(email) = ?", strings.ToLower(user.Email)).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, "A user with this email already exists")
		}
	}
	return r.db.WithContext(ctx).Create(models.UserModelFromDomain(user)).Error
}

// UpdateUser applies a partial update in a single UPDATE statement and returns the stored user
func (r *GormUserRepository) UpdateUser(ctx context.Context, id uuid.UUID, update identity.UserUpdate) (*identity.User, error) {
	values := map[string]any{"updated_at": time.Now()}
	if update.Email != nil {
		values["email"] = strings.ToLower(strings.TrimSpace(*update.Email))
	}
	if update.BusinessName != nil {
		values["business_name"] = strings.TrimSpace(*update.BusinessName)
	}
	if update.IsActive != nil {
		values["is_active"] = *update.IsActive
	}
	if update.EmailPreferences != nil {
		raw, err := json.Marshal(update.EmailPreferences)
		if err != nil {
			return nil, fmt.Errorf("encode email preferences: %w", err)
		}
		values["email_preferences"] = string(raw)
	}

	result := r.db.WithContext(ctx).Model(&models.UserModel{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "User not found")
	}
	return r.GetUser(ctx, id)
}
