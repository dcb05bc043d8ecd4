package harvest

import "context"

type Event string

const (
	EventStarted   Event = "started"
	EventProgress  Event = "progress"
	EventCompleted Event = "completed"
	EventStopped   Event = "stopped"
	EventEmpty     Event = "empty"
	EventError     Event = "error"
)

// Notice is a user-facing workflow message.
type Notice struct {
	Session string        `json:"session"`
	Kind    Kind          `json:"kind,omitempty"`
	Event   Event         `json:"event"`
	Message string        `json:"message"`
	State   WorkflowState `json:"state,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notice) {}
