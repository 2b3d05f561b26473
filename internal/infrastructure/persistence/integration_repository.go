package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/domain/shared"
	"github.com/opshub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormIntegrationRepository implements integration.Repository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

var _ integration.Repository = (*GormIntegrationRepository)(nil)

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// ListIntegrations returns a tenant's integrations
func (r *GormIntegrationRepository) ListIntegrations(ctx context.Context, userID uuid.UUID) ([]*integration.Integration, error) {
	var rows []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*integration.Integration, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// GetIntegration finds an integration by ID
func (r *GormIntegrationRepository) GetIntegration(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Integration not found")
	}
	return model.ToDomain(), nil
}

// CreateIntegration inserts an integration. A tenant has at most one per platform.
func (r *GormIntegrationRepository) CreateIntegration(ctx context.Context, integ *integration.Integration) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.IntegrationModel{}).
		Where("user_id = ? AND platform = ?", integ.UserID, integ.Platform).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, "Integration already exists for this platform")
	}
	return r.db.WithContext(ctx).Create(models.IntegrationModelFromDomain(integ)).Error
}

// UpdateIntegration applies a partial update in a single UPDATE statement
func (r *GormIntegrationRepository) UpdateIntegration(ctx context.Context, id uuid.UUID, update integration.Update) error {
	values := map[string]any{}
	if update.IsConnected != nil {
		values["is_connected"] = *update.IsConnected
	}
	if update.Credentials != nil {
		values["credentials"] = *update.Credentials
	}
	if update.LastSynced != nil {
		values["last_synced"] = *update.LastSynced
	}
	if len(values) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.IntegrationModel{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.ErrNotFound.Code, "Integration not found")
	}
	return nil
}
