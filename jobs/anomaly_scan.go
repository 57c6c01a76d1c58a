package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnomalyScanJob looks for months where a vehicle's combined service and
// fuel spend departs sharply from its own history. High-severity hits turn
// into an email to the garage owner.
type AnomalyScanJob struct {
	Pool   *pgxpool.Pool
	Client *Client
	Logger *slog.Logger
	clock  func() time.Time
}

// NewAnomalyScanJob initialises the anomaly scan handler.
func NewAnomalyScanJob(pool *pgxpool.Pool, client *Client, logger *slog.Logger) *AnomalyScanJob {
	return &AnomalyScanJob{
		Pool:   pool,
		Client: client,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the anomaly scan logic.
func (j *AnomalyScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("anomaly scan: handler not configured")
	}
	var payload AnomalyScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowMonths <= 0 {
		payload.WindowMonths = 12
	}
	if payload.Z <= 0 {
		payload.Z = 2.5
	}

	start := j.now()
	logger := j.logger().With(
		slog.Int("window_months", payload.WindowMonths),
		slog.Float64("z_threshold", payload.Z),
	)
	logger.Info("starting anomaly scan")

	scopes, anomalies, err := j.scan(ctx, payload, start)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}

	for _, a := range anomalies {
		logger.Warn("cost anomaly detected",
			slog.Int64("vehicle_id", a.VehicleID),
			slog.String("period", a.Period),
			slog.String("severity", a.Severity),
			slog.Float64("z_score", a.ZScore),
			slog.Float64("delta", a.Delta),
		)
		if a.Severity == severityHigh {
			if err := j.notifyOwner(ctx, a); err != nil {
				logger.Warn("notify owner", slog.Int64("vehicle_id", a.VehicleID), slog.Any("error", err))
			}
		}
	}

	logger.Info("completed anomaly scan",
		slog.Int("vehicles", scopes),
		slog.Int("anomalies", len(anomalies)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

const (
	severityHigh   = "HIGH"
	severityMedium = "MEDIUM"
)

func (j *AnomalyScanJob) scan(ctx context.Context, payload AnomalyScanPayload, now time.Time) (int, []costAnomaly, error) {
	if j.Pool == nil {
		return 0, nil, errors.New("anomaly scan: pool not configured")
	}
	from := now.AddDate(0, -payload.WindowMonths+1, 0).Format("2006-01")
	rows, err := j.Pool.Query(ctx, `
SELECT costs.vehicle_id, costs.period, SUM(costs.amount)::double precision
FROM (
    SELECT vehicle_id, to_char(performed_on, 'YYYY-MM') AS period, cost AS amount FROM service_records
    UNION ALL
    SELECT vehicle_id, to_char(filled_on, 'YYYY-MM') AS period, total_cost FROM fuel_logs
) costs
WHERE costs.period >= $1
GROUP BY costs.vehicle_id, costs.period
ORDER BY costs.vehicle_id, costs.period`, from)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	series := make(map[int64]*costSeries)
	for rows.Next() {
		var vehicleID int64
		var period string
		var total float64
		if err := rows.Scan(&vehicleID, &period, &total); err != nil {
			return 0, nil, err
		}
		entry, ok := series[vehicleID]
		if !ok {
			entry = &costSeries{VehicleID: vehicleID}
			series[vehicleID] = entry
		}
		entry.Periods = append(entry.Periods, period)
		entry.Values = append(entry.Values, total)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	return len(series), detectAnomalies(series, payload.Z), nil
}

// detectAnomalies flags the latest month of each series whose z-score against
// the series' own history crosses the threshold. Series shorter than three
// months have no useful baseline and are skipped.
func detectAnomalies(series map[int64]*costSeries, z float64) []costAnomaly {
	anomalies := make([]costAnomaly, 0)
	for _, entry := range series {
		if len(entry.Values) < 3 {
			continue
		}
		mean := average(entry.Values)
		stddev := std(entry.Values, mean)
		if stddev == 0 {
			continue
		}
		last := entry.Values[len(entry.Values)-1]
		zscore := math.Abs((last - mean) / stddev)
		severity := ""
		switch {
		case zscore >= z:
			severity = severityHigh
		case zscore >= z*0.6:
			severity = severityMedium
		default:
			continue
		}
		anomalies = append(anomalies, costAnomaly{
			VehicleID: entry.VehicleID,
			Period:    entry.Periods[len(entry.Periods)-1],
			Severity:  severity,
			ZScore:    zscore,
			Delta:     last - mean,
		})
	}
	return anomalies
}

func (j *AnomalyScanJob) notifyOwner(ctx context.Context, a costAnomaly) error {
	if j.Client == nil {
		return nil
	}
	var vehicleName, ownerEmail string
	err := j.Pool.QueryRow(ctx, `
SELECT v.name, u.email
FROM vehicles v
JOIN garages g ON g.id = v.garage_id
JOIN users u ON u.id = g.owner_id
WHERE v.id = $1`, a.VehicleID).Scan(&vehicleName, &ownerEmail)
	if err != nil {
		return err
	}
	body := fmt.Sprintf(
		"Spending on %s in %s was $%.2f above its recent average. Review the month's service records and fuel logs if this looks unexpected.",
		vehicleName, a.Period, a.Delta)
	_, err = j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      ownerEmail,
		Subject: fmt.Sprintf("Unusual spending on %s", vehicleName),
		Body:    body,
	})
	return err
}

func (j *AnomalyScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnomalyScan))
	}
	return slog.Default().With(slog.String("job", TaskAnomalyScan))
}

func (j *AnomalyScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

type costSeries struct {
	VehicleID int64
	Periods   []string
	Values    []float64
}

type costAnomaly struct {
	VehicleID int64
	Period    string
	Severity  string
	ZScore    float64
	Delta     float64
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func std(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
