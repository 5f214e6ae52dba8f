// Package changes carries "the places collection changed" notifications
// between service instances. Subscribers treat every notification as a
// signal to refetch; events are not diffs.
package changes

import (
	"context"
	"encoding/json"
	"time"
)

// Op names the kind of write that produced an event.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
)

// Event describes one successful write to the places collection.
type Event struct {
	Op         Op        `json:"op"`
	DocumentID string    `json:"documentID"`
	At         time.Time `json:"at"`
}

// Feed delivers change notifications until ctx is done. The returned
// channel is closed when the subscription ends.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan struct{}, error)
}

// Publisher announces a successful write to other subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

func encode(ev Event) ([]byte, error) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return json.Marshal(ev)
}

// signal performs a non-blocking send so bursts of events coalesce.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
