package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/currency"
	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// RateGapScanJob warns about active non-base currencies that cannot resolve a
// rate for today. Orders in such currencies cannot snapshot a rate, so the
// gap should be closed before anyone tries to convert.
type RateGapScanJob struct {
	currencies *currency.Service
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
}

func NewRateGapScanJob(currencies *currency.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *RateGapScanJob {
	return &RateGapScanJob{currencies: currencies, logger: logger, metrics: metrics}
}

func (j *RateGapScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("rate_gap_scan")
	return tracker.End(j.handle(ctx, t))
}

func (j *RateGapScanJob) handle(ctx context.Context, t *asynq.Task) error {
	var payload RateGapScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	all, err := j.currencies.List(ctx)
	if err != nil {
		return err
	}
	today := time.Now().UTC()
	gaps := 0
	for _, c := range all {
		if c.IsBase {
			continue
		}
		if _, err := j.currencies.ResolveRate(ctx, c.Code, today); err != nil {
			if errors.Is(err, currency.ErrNoRateAvailable) {
				gaps++
				j.logger.Warn("currency has no effective rate", slog.String("code", c.Code))
				continue
			}
			return err
		}
	}
	j.metrics.AddRateGaps(gaps)
	j.logger.Info("rate gap scan finished", slog.Int("currencies", len(all)), slog.Int("gaps", gaps))
	return nil
}
