package automation

import (
	"context"
	"errors"
	"fmt"

	"github.com/opshub/backend/internal/application/notification"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const JobIntegrationSync = "integration-sync"

// SyncIntegrations syncs every connected integration of every active tenant.
// A failed sync is logged, counted and reported to the tenant; it does not
// fail the tenant or stop its other integrations.
func (s *Service) SyncIntegrations(ctx context.Context) error {
	return s.forEachTenant(ctx, JobIntegrationSync, s.syncTenant)
}

func (s *Service) syncTenant(ctx context.Context, user *identity.User) error {
	integrations, err := s.integrations.ListIntegrations(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list integrations: %w", err)
	}

	log := logger.FromContext(ctx)
	for _, integ := range integrations {
		if !integ.IsConnected {
			continue
		}
		code := integ.Code()
		result, err := s.dispatcher.Sync(ctx, integ)
		if err != nil {
			log.Warn("Integration sync failed",
				logger.Platform(string(code)),
				zap.String("integration_id", integ.ID.String()),
				zap.Error(err),
			)
			s.metrics.SyncFailed(ctx, user.ID, string(code))
			s.notifier.SendIntegrationFailureAlert(ctx, user.ID, notification.IntegrationFailurePayload{
				Platform:   code.DisplayName(),
				Reason:     failureReason(err),
				OccurredAt: s.now(),
			})
			continue
		}
		if !result.Success {
			log.Warn("Integration platform not supported", logger.Platform(integ.Platform))
			continue
		}
		if result.Imported > 0 {
			s.metrics.RecordsImported(ctx, string(code), result.Imported)
		}
		log.Debug("Integration synced",
			logger.Platform(string(code)),
			zap.Int("imported", result.Imported),
			zap.Int("skipped", result.Skipped),
		)
	}
	return nil
}

// failureReason is the tenant-facing explanation of a sync error. It never
// includes the underlying error text.
func failureReason(err error) string {
	switch {
	case errors.Is(err, integration.ErrMissingCredentials):
		return "The stored credentials are missing or incomplete. Reconnect the integration to resume syncing."
	case errors.Is(err, integration.ErrReauthorizationRequired):
		return "The platform rejected our authorization. Reconnect the integration to resume syncing."
	case errors.Is(err, integration.ErrPlatformUnavailable):
		return "The platform is temporarily unavailable. We will retry on the next sync."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The sync timed out. We will retry on the next sync."
	default:
		return "The platform returned an unexpected response. We will retry on the next sync."
	}
}
