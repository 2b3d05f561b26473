package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/task"
	"github.com/opshub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTaskRepository implements task.Repository using GORM
type GormTaskRepository struct {
	db *gorm.DB
}

var _ task.Repository = (*GormTaskRepository)(nil)

// NewGormTaskRepository creates a new GormTaskRepository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// ListTasks returns a tenant's tasks, oldest first
func (r *GormTaskRepository) ListTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	var rows []models.TaskModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*task.Task, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// CreateTask inserts a task
func (r *GormTaskRepository) CreateTask(ctx context.Context, t *task.Task) error {
	return r.db.WithContext(ctx).Create(models.TaskModelFromDomain(t)).Error
}
