package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdempotencyCleanup prunes stale idempotency keys.
	TaskIdempotencyCleanup = "housekeeping:idempotency_cleanup"
	// TaskBrandingAssetSweep reports branding assets no template references.
	TaskBrandingAssetSweep = "housekeeping:branding_asset_sweep"
	// TaskRateGapScan flags active currencies that have no effective rate.
	TaskRateGapScan = "currency:rate_gap_scan"
)

// IdempotencyCleanupPayload controls how old a key must be before pruning.
type IdempotencyCleanupPayload struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// NewIdempotencyCleanupTask builds a cleanup task.
func NewIdempotencyCleanupTask(maxAgeHours int) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{MaxAgeHours: maxAgeHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// BrandingAssetSweepPayload points the sweep at the asset directory.
type BrandingAssetSweepPayload struct {
	AssetDir string `json:"asset_dir"`
}

// NewBrandingAssetSweepTask builds a sweep task.
func NewBrandingAssetSweepTask(assetDir string) (*asynq.Task, error) {
	body, err := json.Marshal(BrandingAssetSweepPayload{AssetDir: assetDir})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBrandingAssetSweep, body, asynq.Queue(QueueDefault)), nil
}

// RateGapScanPayload is currently empty; the scan always checks today.
type RateGapScanPayload struct{}

// NewRateGapScanTask builds a rate-gap scan task.
func NewRateGapScanTask() (*asynq.Task, error) {
	body, err := json.Marshal(RateGapScanPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRateGapScan, body, asynq.Queue(QueueDefault)), nil
}
