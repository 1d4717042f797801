package events

import (
	"context"
	"errors"
)

// Publisher is implemented by every event sink of this package.
type Publisher interface {
	PublishOrderCompleted(ctx context.Context, event OrderCompletedEvent) error
}

// MultiPublisher fans an event out to every sink. All sinks are tried; the
// errors are joined.
type MultiPublisher struct {
	sinks []Publisher
}

func NewMultiPublisher(sinks ...Publisher) *MultiPublisher {
	return &MultiPublisher{sinks: sinks}
}

func (m *MultiPublisher) PublishOrderCompleted(ctx context.Context, event OrderCompletedEvent) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.PublishOrderCompleted(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
