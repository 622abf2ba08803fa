package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/kamikazebr/license-gateway/internal/server/metrics"
	"github.com/kamikazebr/license-gateway/internal/server/storage"
)

// Housekeeper runs the periodic maintenance jobs: pruning analytics events
// past retention and refreshing the lapsed license gauge. Lapsed licenses
// are only counted; their status is never rewritten.
type Housekeeper struct {
	analytics   *AnalyticsRecorder
	licenseRepo *storage.LicenseRepository
	metrics     *metrics.Metrics
	clock       quartz.Clock

	retention time.Duration
	interval  time.Duration

	scheduler gocron.Scheduler
}

func NewHousekeeper(
	analytics *AnalyticsRecorder,
	licenseRepo *storage.LicenseRepository,
	m *metrics.Metrics,
	retention, interval time.Duration,
) *Housekeeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Housekeeper{
		analytics:   analytics,
		licenseRepo: licenseRepo,
		metrics:     m,
		clock:       quartz.NewReal(),
		retention:   retention,
		interval:    interval,
	}
}

func (h *Housekeeper) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(h.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := h.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("Housekeeping run failed")
			}
		}),
		gocron.WithName("housekeeping"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule housekeeping: %w", err)
	}

	scheduler.Start()
	h.scheduler = scheduler
	log.Info().Dur("interval", h.interval).Dur("retention", h.retention).Msg("Housekeeping scheduled")
	return nil
}

func (h *Housekeeper) Stop() error {
	if h.scheduler == nil {
		return nil
	}
	return h.scheduler.Shutdown()
}

// RunOnce performs one maintenance pass. Both steps run even if one fails.
func (h *Housekeeper) RunOnce(ctx context.Context) error {
	var errs []error

	if h.retention > 0 {
		cutoff := h.clock.Now().Add(-h.retention)
		pruned, err := h.analytics.Prune(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("prune analytics: %w", err))
		} else if pruned > 0 {
			log.Info().Int64("events", pruned).Time("cutoff", cutoff).Msg("Pruned analytics events")
		}
	}

	lapsed, err := h.licenseRepo.CountLapsed(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("count lapsed licenses: %w", err))
	} else if h.metrics != nil {
		h.metrics.SetLapsedLicenses(lapsed)
	}

	return errors.Join(errs...)
}
