package models

import (
	"time"

	"github.com/opshub/backend/internal/domain/report"
)

// ReportModel is the persistence model for stored report snapshots
type ReportModel struct {
	TenantModel
	Kind            report.Kind `gorm:"type:varchar(20);not null"`
	PeriodStart     time.Time   `gorm:"not null"`
	PeriodEnd       time.Time   `gorm:"not null"`
	Revenue         int64       `gorm:"not null;default:0"`
	Expenses        int64       `gorm:"not null;default:0"`
	NetCashFlow     int64       `gorm:"not null;default:0"`
	CashPosition    int64       `gorm:"not null;default:0"`
	OverdueInvoices int         `gorm:"not null;default:0"`
	OverdueAmount   int64       `gorm:"not null;default:0"`
	NewTasks        int         `gorm:"not null;default:0"`
	ArchiveKey      string      `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ReportModel) TableName() string {
	return "reports"
}

// ToDomain converts the persistence model to a domain Report
func (m *ReportModel) ToDomain() *report.Report {
	return &report.Report{
		BaseEntity:      m.BaseModel.ToDomain(),
		UserID:          m.UserID,
		Kind:            m.Kind,
		PeriodStart:     m.PeriodStart,
		PeriodEnd:       m.PeriodEnd,
		Revenue:         m.Revenue,
		Expenses:        m.Expenses,
		NetCashFlow:     m.NetCashFlow,
		CashPosition:    m.CashPosition,
		OverdueInvoices: m.OverdueInvoices,
		OverdueAmount:   m.OverdueAmount,
		NewTasks:        m.NewTasks,
		ArchiveKey:      m.ArchiveKey,
	}
}

// ReportModelFromDomain creates a persistence model from a domain Report
func ReportModelFromDomain(r *report.Report) *ReportModel {
	m := &ReportModel{
		Kind:            r.Kind,
		PeriodStart:     r.PeriodStart,
		PeriodEnd:       r.PeriodEnd,
		Revenue:         r.Revenue,
		Expenses:        r.Expenses,
		NetCashFlow:     r.NetCashFlow,
		CashPosition:    r.CashPosition,
		OverdueInvoices: r.OverdueInvoices,
		OverdueAmount:   r.OverdueAmount,
		NewTasks:        r.NewTasks,
		ArchiveKey:      r.ArchiveKey,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	m.UserID = r.UserID
	return m
}
