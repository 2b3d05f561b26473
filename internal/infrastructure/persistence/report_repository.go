package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/report"
	"github.com/opshub/backend/internal/domain/shared"
	"github.com/opshub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReportRepository implements report.Repository using GORM
type GormReportRepository struct {
	db *gorm.DB
}

var _ report.Repository = (*GormReportRepository)(nil)

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// CreateReport inserts a report
func (r *GormReportRepository) CreateReport(ctx context.Context, rep *report.Report) error {
	return r.db.WithContext(ctx).Create(models.ReportModelFromDomain(rep)).Error
}

// UpdateReportArchive records where the rendered report was archived
func (r *GormReportRepository) UpdateReportArchive(ctx context.Context, id uuid.UUID, archiveKey string) error {
	result := r.db.WithContext(ctx).Model(&models.ReportModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"archive_key": archiveKey, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.ErrNotFound.Code, "Report not found")
	}
	return nil
}

// ListReports returns a tenant's reports, newest period first
func (r *GormReportRepository) ListReports(ctx context.Context, userID uuid.UUID) ([]*report.Report, error) {
	var rows []models.ReportModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("period_start DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*report.Report, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}
