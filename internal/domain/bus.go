package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names for the comparison pipeline.
const (
	TopicComparisonRequested = "pholli.comparison.requested"
	TopicComparisonCompleted = "pholli.comparison.completed"
	TopicComparisonFailed    = "pholli.comparison.failed"
	TopicPolicyUpdated       = "pholli.policy.updated"
	TopicSurveyUpdated       = "pholli.survey.updated"
)

// PolicyUpdatedEvent is the payload published on TopicPolicyUpdated.
type PolicyUpdatedEvent struct {
	PolicyID      string        `json:"policyId"`
	InsuranceType InsuranceType `json:"insuranceType"`
}

// SurveyUpdatedEvent is the payload published on TopicSurveyUpdated.
type SurveyUpdatedEvent struct {
	SurveyID string `json:"surveyId"`
}

// ComparisonRequestedEvent is the payload published on TopicComparisonRequested.
type ComparisonRequestedEvent struct {
	SurveyID string `json:"surveyId"`
	Force    bool   `json:"force"`
}

// ComparisonCompletedEvent is the payload published on TopicComparisonCompleted.
type ComparisonCompletedEvent struct {
	SurveyID    string  `json:"surveyId"`
	ResultCount int     `json:"resultCount"`
	BestScore   float64 `json:"bestScore"`
}

// ComparisonFailedEvent is the payload published on TopicComparisonFailed.
type ComparisonFailedEvent struct {
	SurveyID string `json:"surveyId"`
	Reason   string `json:"reason"`
}
