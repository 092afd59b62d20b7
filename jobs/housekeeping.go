package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/report"
)

// IdempotencyCleanupJob prunes idempotency keys older than the payload's age.
type IdempotencyCleanupJob struct {
	store   *shared.IdempotencyStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{store: store, logger: logger, metrics: metrics}
}

func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("idempotency_cleanup")
	return tracker.End(j.handle(ctx, t))
}

func (j *IdempotencyCleanupJob) handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.MaxAgeHours <= 0 {
		payload.MaxAgeHours = 24
	}
	removed, err := j.store.Cleanup(ctx, time.Duration(payload.MaxAgeHours)*time.Hour)
	if err != nil {
		return err
	}
	j.logger.Info("idempotency cleanup finished",
		slog.Int64("removed", removed),
		slog.Int("max_age_hours", payload.MaxAgeHours))
	return nil
}

// BrandingAssetSweepJob lists files in the branding asset directory that no
// stored image template references. It only reports; deletion stays manual.
type BrandingAssetSweepJob struct {
	brandings *report.BrandingRepository
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

func NewBrandingAssetSweepJob(brandings *report.BrandingRepository, logger *slog.Logger, metrics *jobmetrics.Metrics) *BrandingAssetSweepJob {
	return &BrandingAssetSweepJob{brandings: brandings, logger: logger, metrics: metrics}
}

func (j *BrandingAssetSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("branding_asset_sweep")
	return tracker.End(j.handle(ctx, t))
}

func (j *BrandingAssetSweepJob) handle(ctx context.Context, t *asynq.Task) error {
	var payload BrandingAssetSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.AssetDir == "" {
		return asynq.SkipRetry
	}
	referenced, err := j.brandings.ListAssetPaths(ctx)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(payload.AssetDir)
	if err != nil {
		return err
	}
	var orphans []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := referenced[entry.Name()]; ok {
			continue
		}
		if _, ok := referenced[filepath.Join(payload.AssetDir, entry.Name())]; ok {
			continue
		}
		orphans = append(orphans, entry.Name())
	}
	j.logger.Info("branding asset sweep finished",
		slog.Int("referenced", len(referenced)),
		slog.Int("orphaned", len(orphans)),
		slog.Any("orphans", orphans))
	return nil
}
