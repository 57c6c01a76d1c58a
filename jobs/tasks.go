package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskSnapshotWarmup pre-computes analytics reports for active scopes.
	TaskSnapshotWarmup = "analytics:snapshot_warmup"
	// TaskAnomalyScan inspects monthly cost series for outliers.
	TaskAnomalyScan = "analytics:anomaly_scan"
	// TaskReminderScan finds expiring warranties and tax renewals and
	// queues reminder emails for owners who opted in.
	TaskReminderScan = "reminders:scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SnapshotWarmupPayload tunes how far back the warmup reaches.
type SnapshotWarmupPayload struct {
	Months int `json:"months"`
}

// AnomalyScanPayload tunes the anomaly detection window and threshold.
type AnomalyScanPayload struct {
	WindowMonths int     `json:"window_months"`
	Z            float64 `json:"z"`
}

// ReminderScanPayload is currently empty; the scan window is derived from
// each owner's reminder preferences.
type ReminderScanPayload struct{}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewSnapshotWarmupTask constructs an analytics warmup task.
func NewSnapshotWarmupTask(payload SnapshotWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotWarmup, data), nil
}

// NewAnomalyScanTask constructs an anomaly scan task.
func NewAnomalyScanTask(payload AnomalyScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnomalyScan, data), nil
}

// NewReminderScanTask constructs a reminder scan task.
func NewReminderScanTask() (*asynq.Task, error) {
	data, err := json.Marshal(ReminderScanPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReminderScan, data), nil
}
