// Package progress delivers progress events of training and test runs to
// observers: the log, a channel, or a kafka topic.
package progress

import (
	"context"
	"errors"
	"log"

	"github.com/shlpu/TSAT/lib/datatypes"
)

// A Sink receives progress events. Publish is called from the goroutine that
// runs the search, one event at a time.
type Sink interface {
	Publish(ctx context.Context, event *datatypes.ProgressEvent) error

	// Close flushes pending events.
	Close() error
}

// LogSink writes events to the standard logger.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, e *datatypes.ProgressEvent) error {
	switch e.Kind {
	case datatypes.ITERATION:
		log.Printf("run %s iteration %d: %d points evaluated, best error %f at %v\n",
			e.RunID, e.Iteration, len(e.Evaluated), e.BestError, e.Best.Values())
	default:
		log.Printf("run %s %s: best error %f at %v %s\n", e.RunID, e.Kind, e.BestError, e.Best.Values(), e.Message)
	}
	return nil
}

func (LogSink) Close() error {
	return nil
}

// Multi publishes to every sink, in order. All sinks see every event even if
// one of them fails.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e *datatypes.ProgressEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
