package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"go-presence/internal/domain"
	"go-presence/internal/events"
)

type EventPublisher interface {
	PublishActivityStarted(ctx context.Context, companyID, employeeID string, t domain.ActivityType, startedAt time.Time) error
	PublishActivityEnded(ctx context.Context, companyID, employeeID string, t domain.ActivityType, endedAt time.Time) error
}

type noopEventPublisher struct{}

func (noopEventPublisher) PublishActivityStarted(context.Context, string, string, domain.ActivityType, time.Time) error {
	return nil
}

func (noopEventPublisher) PublishActivityEnded(context.Context, string, string, domain.ActivityType, time.Time) error {
	return nil
}

// NewNoopEventPublisher is used when no broker is configured.
func NewNoopEventPublisher() EventPublisher {
	return noopEventPublisher{}
}

type kafkaEventPublisher struct {
	writer *kafka.Writer
}

func NewKafkaEventPublisher(writer *kafka.Writer) EventPublisher {
	return &kafkaEventPublisher{writer: writer}
}

func (p *kafkaEventPublisher) PublishActivityStarted(
	ctx context.Context,
	companyID, employeeID string,
	t domain.ActivityType,
	startedAt time.Time,
) error {
	event := events.ActivityStartedEvent{
		EventType:  "activity.started",
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Activity:   string(t),
		OccurredAt: startedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: events.ActivityLifecycleTopic,
		Key:   []byte(employeeID),
		Value: payload,
	})
}

func (p *kafkaEventPublisher) PublishActivityEnded(
	ctx context.Context,
	companyID, employeeID string,
	t domain.ActivityType,
	endedAt time.Time,
) error {
	event := events.ActivityEndedEvent{
		EventType:  "activity.ended",
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Activity:   string(t),
		OccurredAt: endedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: events.ActivityLifecycleTopic,
		Key:   []byte(employeeID),
		Value: payload,
	})
}
