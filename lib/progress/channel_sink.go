package progress

import (
	"context"

	"github.com/shlpu/TSAT/lib/datatypes"
)

// A ChannelSink hands events to an in-process consumer. Publish blocks until
// the consumer takes the event or ctx is done.
type ChannelSink struct {
	events chan *datatypes.ProgressEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan *datatypes.ProgressEvent, buffer)}
}

func (c *ChannelSink) Events() <-chan *datatypes.ProgressEvent {
	return c.events
}

func (c *ChannelSink) Publish(ctx context.Context, e *datatypes.ProgressEvent) error {
	select {
	case c.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the event stream. The sink must not be used afterwards.
func (c *ChannelSink) Close() error {
	close(c.events)
	return nil
}
