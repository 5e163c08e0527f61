package songapi

import (
	"context"
	"time"
)

// Event holds one request/response pair issued against the remote service.
type Event struct {
	Method   string
	URL      string
	Status   int
	Request  []byte
	Response []byte
	Elapsed  time.Duration
	Err      error
}

// Recorder receives a copy of every outbound call. It is optional: when no
// recorder is configured the client skips it entirely.
type Recorder interface {
	Record(ctx context.Context, ev *Event)
}

func (c *Client) record(ctx context.Context, ev *Event) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(ctx, ev)
}
