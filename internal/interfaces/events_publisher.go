package interfaces

import "context"

// EventPublisher delivers committed-operation events. Callers treat a
// failed Publish as lost notification, never as a failed operation.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
