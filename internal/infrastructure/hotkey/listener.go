// Package hotkey runs the global emergency-stop listener on its own
// goroutine. It only ever signals the registered callback; state transitions
// stay with the run's worker.
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"

	"screen-agent/internal/application/port/output"
)

type Listener struct {
	logger output.LoggerPort

	mu      sync.Mutex
	running bool
}

func NewListener(logger output.LoggerPort) *Listener {
	return &Listener{logger: logger}
}

// Start registers Escape as the emergency stop and begins listening.
// onTrigger fires on the hook goroutine and must be safe to call from there.
func (l *Listener) Start(onTrigger func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true

	hook.Register(hook.KeyDown, []string{"esc"}, func(e hook.Event) {
		l.logger.Info("Emergency stop hotkey pressed")
		onTrigger()
	})

	go func() {
		s := hook.Start()
		<-hook.Process(s)
	}()
	l.logger.Info("Emergency stop listener armed", "key", "esc")
}

func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	hook.End()
}
