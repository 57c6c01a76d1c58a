package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mygarage/mygarage/internal/analytics"
)

// SnapshotWarmupJob pre-populates analytics report caches so the first
// dashboard hit after an invalidation does not pay the aggregation cost.
type SnapshotWarmupJob struct {
	Analytics *analytics.Service
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewSnapshotWarmupJob wires dependencies for the warmup handler.
func NewSnapshotWarmupJob(analyticsSvc *analytics.Service, pool *pgxpool.Pool, logger *slog.Logger) *SnapshotWarmupJob {
	return &SnapshotWarmupJob{
		Analytics: analyticsSvc,
		Pool:      pool,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes analytics warmup tasks.
func (j *SnapshotWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("snapshot warmup: handler not configured")
	}
	var payload SnapshotWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Months <= 0 {
		payload.Months = 12
	}

	logger := j.logger().With(slog.Int("months", payload.Months))
	logger.Info("starting snapshot warmup")

	now := j.now()
	to := now.Format("2006-01")
	from := now.AddDate(0, -(payload.Months - 1), 0).Format("2006-01")

	garages, vehicles, err := j.fetchScopes(ctx)
	if err != nil {
		logger.Error("load warmup scopes", slog.Any("error", err))
		return err
	}
	if len(garages) == 0 && len(vehicles) == 0 {
		logger.Info("no scopes discovered for warmup")
		return nil
	}

	warmed := 0
	for _, garageID := range garages {
		if err := j.warmGarage(ctx, garageID, from, to); err != nil {
			logger.Error("warm garage", slog.Int64("garage_id", garageID), slog.Any("error", err))
			return err
		}
		warmed++
	}
	for _, vehicleID := range vehicles {
		if err := j.warmVehicle(ctx, vehicleID, from, to); err != nil {
			logger.Error("warm vehicle", slog.Int64("vehicle_id", vehicleID), slog.Any("error", err))
			return err
		}
		warmed++
	}

	logger.Info("completed snapshot warmup", slog.Int("scopes", warmed), slog.Duration("duration", time.Since(now)))
	return nil
}

func (j *SnapshotWarmupJob) warmGarage(ctx context.Context, garageID int64, from, to string) error {
	if j.Analytics == nil {
		return nil
	}
	scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	_, err := j.Analytics.GarageReport(scopeCtx, garageID, from, to)
	return err
}

func (j *SnapshotWarmupJob) warmVehicle(ctx context.Context, vehicleID int64, from, to string) error {
	if j.Analytics == nil {
		return nil
	}
	scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	_, err := j.Analytics.VehicleReport(scopeCtx, vehicleID, from, to)
	return err
}

func (j *SnapshotWarmupJob) fetchScopes(ctx context.Context) ([]int64, []int64, error) {
	if j.Pool == nil {
		return nil, nil, errors.New("snapshot warmup: pool not configured")
	}
	garages, err := j.fetchIDs(ctx, `SELECT id FROM garages ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	vehicles, err := j.fetchIDs(ctx, `SELECT id FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, nil, err
	}
	return garages, vehicles, nil
}

func (j *SnapshotWarmupJob) fetchIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := j.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *SnapshotWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSnapshotWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSnapshotWarmup))
}

func (j *SnapshotWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
