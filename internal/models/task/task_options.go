package task

// TaskOption mutates a task in place. The repository applies options
// under its own lock.
type TaskOption func(*Task)

func WithName(name string) TaskOption {
	return func(t *Task) {
		t.Name = name
	}
}

func WithPriority(p Priority) TaskOption {
	return func(t *Task) {
		t.Priority = p
	}
}

func WithStatus(s Status) TaskOption {
	return func(t *Task) {
		t.Status = s
	}
}

func WithRemaining(seconds int) TaskOption {
	return func(t *Task) {
		v := seconds
		t.RemainingTime = &v
	}
}

func WithoutRemaining() TaskOption {
	return func(t *Task) {
		t.RemainingTime = nil
	}
}

// Apply runs every non-nil option against t.
func Apply(t *Task, options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
