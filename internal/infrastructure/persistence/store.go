package persistence

import "gorm.io/gorm"

// Store bundles the repositories the automation core reads and writes
type Store struct {
	*GormUserRepository
	*GormTransactionRepository
	*GormInvoiceRepository
	*GormIntegrationRepository
	*GormTaskRepository
	*GormReportRepository
}

// NewStore builds every repository over db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		GormUserRepository:        NewGormUserRepository(db),
		GormTransactionRepository: NewGormTransactionRepository(db),
		GormInvoiceRepository:     NewGormInvoiceRepository(db),
		GormIntegrationRepository: NewGormIntegrationRepository(db),
		GormTaskRepository:        NewGormTaskRepository(db),
		GormReportRepository:      NewGormReportRepository(db),
	}
}
