package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mygarage/mygarage/internal/coverage"
	"github.com/mygarage/mygarage/internal/expenses"
	"github.com/mygarage/mygarage/internal/settings"
)

// maxReminderDays matches the largest lead time a user can configure.
const maxReminderDays = 90

// ReminderScanJob finds warranties about to expire and taxes about to renew,
// filters them through each owner's reminder preferences, and queues an
// email per upcoming event.
type ReminderScanJob struct {
	Coverage *coverage.Service
	Expenses *expenses.Service
	Settings *settings.Service
	Pool     *pgxpool.Pool
	Client   *Client
	Logger   *slog.Logger
	clock    func() time.Time
}

// NewReminderScanJob wires dependencies for the reminder scan handler.
func NewReminderScanJob(coverageSvc *coverage.Service, expensesSvc *expenses.Service, settingsSvc *settings.Service, pool *pgxpool.Pool, client *Client, logger *slog.Logger) *ReminderScanJob {
	return &ReminderScanJob{
		Coverage: coverageSvc,
		Expenses: expensesSvc,
		Settings: settingsSvc,
		Pool:     pool,
		Client:   client,
		Logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one reminder sweep.
func (j *ReminderScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("reminder scan: handler not configured")
	}
	var payload ReminderScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	now := j.now()
	// Fetch the widest window any owner could have configured, then narrow
	// per owner below.
	from := now
	to := now.AddDate(0, 0, maxReminderDays)

	logger := j.logger()
	logger.Info("starting reminder scan")

	warranties, err := j.Coverage.ExpiringWarranties(ctx, from, to)
	if err != nil {
		logger.Error("load expiring warranties", slog.Any("error", err))
		return err
	}
	taxes, err := j.Expenses.RenewingTaxes(ctx, from, to)
	if err != nil {
		logger.Error("load renewing taxes", slog.Any("error", err))
		return err
	}

	run := &reminderRun{job: j, prefs: make(map[int64]settings.Settings), emails: make(map[int64]string)}
	queued := 0
	for _, w := range warranties {
		sent, err := run.remind(ctx, w.OwnerID, w.EndDate, now,
			fmt.Sprintf("Warranty expiring on %s", w.VehicleName),
			fmt.Sprintf("The %q warranty on %s ends %s.", w.Name, w.VehicleName, w.EndDate.Format("January 2, 2006")))
		if err != nil {
			logger.Warn("warranty reminder", slog.Int64("warranty_id", w.ID), slog.Any("error", err))
			continue
		}
		if sent {
			queued++
		}
	}
	for _, tax := range taxes {
		if tax.RenewsOn == nil {
			continue
		}
		sent, err := run.remind(ctx, tax.OwnerID, *tax.RenewsOn, now,
			fmt.Sprintf("Tax renewal due for %s", tax.VehicleName),
			fmt.Sprintf("%s on %s renews %s.", tax.Description, tax.VehicleName, tax.RenewsOn.Format("January 2, 2006")))
		if err != nil {
			logger.Warn("tax reminder", slog.Int64("expense_id", tax.ID), slog.Any("error", err))
			continue
		}
		if sent {
			queued++
		}
	}

	logger.Info("completed reminder scan",
		slog.Int("warranties", len(warranties)),
		slog.Int("taxes", len(taxes)),
		slog.Int("queued", queued),
		slog.Duration("duration", time.Since(now)),
	)
	return nil
}

// reminderRun caches per-owner lookups for the duration of one sweep.
type reminderRun struct {
	job    *ReminderScanJob
	prefs  map[int64]settings.Settings
	emails map[int64]string
}

func (r *reminderRun) remind(ctx context.Context, ownerID int64, eventDate, now time.Time, subject, body string) (bool, error) {
	prefs, err := r.preferences(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if !prefs.EmailReminders {
		return false, nil
	}
	if !withinReminderWindow(eventDate, now, prefs.ReminderDays) {
		return false, nil
	}
	email, err := r.email(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if r.job.Client == nil {
		return false, nil
	}
	if _, err := r.job.Client.EnqueueSendEmail(ctx, SendEmailPayload{To: email, Subject: subject, Body: body}); err != nil {
		return false, err
	}
	return true, nil
}

func (r *reminderRun) preferences(ctx context.Context, ownerID int64) (settings.Settings, error) {
	if prefs, ok := r.prefs[ownerID]; ok {
		return prefs, nil
	}
	prefs, err := r.job.Settings.Get(ctx, ownerID)
	if err != nil {
		return settings.Settings{}, err
	}
	r.prefs[ownerID] = prefs
	return prefs, nil
}

func (r *reminderRun) email(ctx context.Context, ownerID int64) (string, error) {
	if email, ok := r.emails[ownerID]; ok {
		return email, nil
	}
	var email string
	if err := r.job.Pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, ownerID).Scan(&email); err != nil {
		return "", err
	}
	r.emails[ownerID] = email
	return email, nil
}

// withinReminderWindow reports whether the event falls inside the owner's
// lead time. Events already in the past are excluded; the scan runs daily,
// so a lapsed date has either been announced or is no longer actionable.
func withinReminderWindow(eventDate, now time.Time, days int) bool {
	if days <= 0 {
		return false
	}
	if eventDate.Before(now) {
		return false
	}
	return !eventDate.After(now.AddDate(0, 0, days))
}

func (j *ReminderScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReminderScan))
	}
	return slog.Default().With(slog.String("job", TaskReminderScan))
}

func (j *ReminderScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
