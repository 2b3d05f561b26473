package platform

import (
	"context"

	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Syncers holds one Syncer per supported platform. A nil field disables that platform.
type Syncers struct {
	Stripe     integration.Syncer
	PayPal     integration.Syncer
	QuickBooks integration.Syncer
	Asana      integration.Syncer
}

func (s Syncers) registry() map[integration.PlatformCode]integration.Syncer {
	reg := make(map[integration.PlatformCode]integration.Syncer, 4)
	for code, syncer := range map[integration.PlatformCode]integration.Syncer{
		integration.PlatformStripe:     s.Stripe,
		integration.PlatformPayPal:     s.PayPal,
		integration.PlatformQuickBooks: s.QuickBooks,
		integration.PlatformAsana:      s.Asana,
	} {
		if syncer != nil {
			reg[code] = syncer
		}
	}
	return reg
}

// Dispatcher routes an integration to the Syncer for its platform
type Dispatcher struct {
	syncers map[integration.PlatformCode]integration.Syncer
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewDispatcher creates a Dispatcher over syncers
func NewDispatcher(syncers Syncers, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		syncers: syncers.registry(),
		tracer:  otel.Tracer("opshub/platform"),
		logger:  log.Named("sync"),
	}
}

// Sync runs one sync pass. An unknown or disabled platform yields an
// unsuccessful result and no error.
func (d *Dispatcher) Sync(ctx context.Context, integ *integration.Integration) (*integration.SyncResult, error) {
	code := integ.Code()
	syncer, ok := d.syncers[code]
	if !ok {
		d.logger.Warn("No syncer for platform", logger.Platform(integ.Platform), logger.Tenant(integ.UserID))
		return &integration.SyncResult{Success: false}, nil
	}

	ctx, span := d.tracer.Start(ctx, "platform.sync", trace.WithAttributes(
		attribute.String("platform", string(code)),
		attribute.String("tenant_id", integ.UserID.String()),
	))
	defer span.End()

	result, err := syncer.Sync(ctx, integ)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("imported", result.Imported),
		attribute.Int("skipped", result.Skipped),
	)
	d.logger.Info("Sync completed",
		logger.Platform(string(code)),
		logger.Tenant(integ.UserID),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// Supports reports whether a syncer is registered for platform
func (d *Dispatcher) Supports(platform string) bool {
	_, ok := d.syncers[integration.ParsePlatform(platform)]
	return ok
}
