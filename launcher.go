package conversation

import "sync"

// Launcher runs an action once a number of tasks have reported completion.
type Launcher struct {
	mu     sync.Mutex
	count  int
	action func()
}

// NewLauncher returns a Launcher firing action after count calls to Launch.
// A count below one fires on the first call.
func NewLauncher(count int, action func()) *Launcher {
	return &Launcher{count: count, action: action}
}

// Launch records one completion and runs the action when the count reaches
// zero. The action runs exactly once, on the goroutine of the last caller.
func (l *Launcher) Launch() {
	l.mu.Lock()
	l.count--
	var action func()
	if l.count <= 0 {
		action, l.action = l.action, nil
	}
	l.mu.Unlock()

	if action != nil {
		action()
	}
}

// Remaining returns how many calls to Launch are still expected.
func (l *Launcher) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return max(l.count, 0)
}
