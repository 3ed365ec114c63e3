package audit

import "context"

// Worker consumes mirrored audit events from a channel and forwards them to a
// secondary sink. It keeps background publishing testable without wiring a
// broker into every test.
type Worker struct {
	sink  Appender
	inbox <-chan Event
}

func NewWorker(sink Appender, inbox <-chan Event) *Worker {
	return &Worker{sink: sink, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
