package models

import (
	"time"

	"github.com/opshub/backend/internal/domain/task"
)

// TaskModel is the persistence model for work items
type TaskModel struct {
	TenantModel
	Title       string      `gorm:"type:varchar(500);not null"`
	Description string      `gorm:"type:text"`
	Status      task.Status `gorm:"type:varchar(20);not null;default:'pending'"`
	DueDate     *time.Time
	Source      string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (TaskModel) TableName() string {
	return "tasks"
}

// ToDomain converts the persistence model to a domain Task
func (m *TaskModel) ToDomain() *task.Task {
	return &task.Task{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		Title:       m.Title,
		Description: m.Description,
		Status:      m.Status,
		DueDate:     m.DueDate,
		Source:      m.Source,
	}
}

// TaskModelFromDomain creates a persistence model from a domain Task
func TaskModelFromDomain(t *task.Task) *TaskModel {
	m := &TaskModel{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		DueDate:     t.DueDate,
		Source:      t.Source,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	m.UserID = t.UserID
	return m
}
