// Package notify publishes diaper alert events to Kafka.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"beebi/backend/internal/analytics"
	"beebi/backend/internal/observability"
)

// EventTypeDiaperAlerts tags events produced from a diaper_alert report.
const EventTypeDiaperAlerts = "diaper.alerts.detected"

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// AlertEvent is the JSON payload written to the alert topic.
type AlertEvent struct {
	EventID    string            `json:"event_id"`
	EventType  string            `json:"event_type"`
	SubjectID  string            `json:"subject_id"`
	Days       *int              `json:"days"`
	AlertCount int               `json:"alert_count"`
	Alerts     []analytics.Alert `json:"alerts"`
	OccurredAt time.Time         `json:"occurred_at"`
}

type AlertPublisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

func NewAlertPublisher(writer messageWriter, topic string, logger *slog.Logger) *AlertPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertPublisher{writer: writer, topic: topic, logger: logger, now: time.Now}
}

// Publish emits one event when the report is a successful diaper_alert run with at least one alert.
// It reports whether an event was written. Failures are logged and counted; the report itself is unaffected.
func (p *AlertPublisher) Publish(ctx context.Context, report analytics.Report) (bool, error) {
	if p == nil || report.Analyzer != analytics.NameDiaperAlert || report.Status != analytics.StatusOK {
		return false, nil
	}
	alerts, _ := report.Metrics["alerts"].([]analytics.Alert)
	if len(alerts) == 0 {
		return false, nil
	}

	event := AlertEvent{
		EventID:    uuid.NewString(),
		EventType:  EventTypeDiaperAlerts,
		SubjectID:  report.SubjectID,
		Days:       report.Days,
		AlertCount: len(alerts),
		Alerts:     alerts,
		OccurredAt: p.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("encode alert event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(report.SubjectID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeDiaperAlerts)},
		},
	}
	err = p.writer.WriteMessages(ctx, p.topic, msg)
	observability.RecordAlertPublish(err)
	if err != nil {
		p.logger.Warn("alert publish failed", "topic", p.topic, "subject_id", report.SubjectID, "error", err)
		return false, fmt.Errorf("publish alert event: %w", err)
	}
	p.logger.Info("alert published", "topic", p.topic, "subject_id", report.SubjectID, "event_id", event.EventID, "alerts", len(alerts))
	return true, nil
}
