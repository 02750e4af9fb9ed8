package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventConversationStarted  EventType = "conversation_started"
	EventConfirmationAsked    EventType = "confirmation_asked"
	EventConversationResolved EventType = "conversation_resolved"
	EventAnalysisStarted      EventType = "analysis_started"
	EventPipelineCompleted    EventType = "pipeline_completed"
	EventPipelineFailed       EventType = "pipeline_failed"
	EventAnalysisCompleted    EventType = "analysis_completed"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Unsubscribe from an event type
	Unsubscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}

// AllEventTypes lists every event type published by the research service.
func AllEventTypes() []EventType {
	return []EventType{
		EventConversationStarted,
		EventConfirmationAsked,
		EventConversationResolved,
		EventAnalysisStarted,
		EventPipelineCompleted,
		EventPipelineFailed,
		EventAnalysisCompleted,
	}
}
