package entity

import "sync/atomic"

// CancelToken is a one-shot, process-wide stop signal shared between the
// orchestrator worker, the UI command thread and the global hotkey listener.
// Once signaled it never resets; a new run gets a fresh token.
type CancelToken struct {
	signaled atomic.Bool
}

func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

func (t *CancelToken) Signal() {
	t.signaled.Store(true)
}

func (t *CancelToken) IsSignaled() bool {
	return t.signaled.Load()
}
