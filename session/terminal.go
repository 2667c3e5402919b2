package session

import "sync"

// terminalSlot is a single-assignment result cell: the first of compile
// success, compile failure, or abort wins and every subsequent attempt to
// set it is a no-op. Wait blocks until the first assignment.
type terminalSlot struct {
	once   sync.Once
	done   chan struct{}
	result *Result
	err    error
}

func newTerminalSlot() *terminalSlot {
	return &terminalSlot{done: make(chan struct{})}
}

// set assigns the terminal outcome. Only the first call has any effect,
// satisfying the "terminal singleness" property: a session that has
// already resolved ignores late protocol errors or duplicate responses.
func (t *terminalSlot) set(result *Result, err error) {
	t.once.Do(func() {
		t.result = result
		t.err = err
		close(t.done)
	})
}

// wait blocks until set has been called and returns its arguments.
func (t *terminalSlot) wait() (*Result, error) {
	<-t.done
	return t.result, t.err
}
