package watcher

import (
	"context"
	"time"
)

// Debouncer batches rapid change events so that one save triggers one reload
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. Events are released after
// quietPeriod without input, or maxWait after the first pending event.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quietTimer  *time.Timer
		maxTimer    *time.Timer
		quiet       <-chan time.Time
		deadline    <-chan time.Time
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	flush := func() {
		if quietTimer != nil {
			quietTimer.Stop()
		}
		if maxTimer != nil {
			maxTimer.Stop()
		}
		quiet, deadline = nil, nil
		maxTimer = nil

		if eventCount == 0 {
			return
		}
		log.Debug("flushing accumulated events", "count", eventCount)

		// Removals first: an editor that renames and recreates ends with the file present
		for _, t := range []ChangeType{ChangeRemoved, ChangeModified} {
			if paths := accumulated[t]; len(paths) > 0 {
				select {
				case d.output <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
				case <-ctx.Done():
				}
			}
		}

		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			eventCount++

			if quietTimer == nil {
				quietTimer = time.NewTimer(d.quietPeriod)
			} else {
				quietTimer.Reset(d.quietPeriod)
			}
			quiet = quietTimer.C

			if maxTimer == nil {
				maxTimer = time.NewTimer(d.maxWait)
				deadline = maxTimer.C
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
