package persistence

import (
	"errors"

	"github.com/opshub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translate maps driver errors onto domain errors
func translate(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewDomainError(shared.ErrNotFound.Code, notFound)
	}
	return err
}
