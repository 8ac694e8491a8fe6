package syncqueue

// State is the aggregate queue state shown to subscribers.
type State string

const (
	StateOffline State = "offline"
	StateSyncing State = "syncing"
	StatePending State = "pending"
	StateIdle    State = "idle"
)

// Status is the observable aggregate of the queue.
type Status struct {
	State   State
	Pending int64
	Failed  int64
}

// Status returns the current aggregate state. Count reads run concurrently
// with the flush loop; WAL keeps them consistent.
func (e *Engine) Status() Status {
	counts, err := e.store.CountEvents()
	if err != nil {
		e.logger.Warn("count events", "err", err)
	}

	e.mu.Lock()
	online, syncing := e.online, e.syncing
	e.mu.Unlock()

	status := Status{Pending: counts.Pending, Failed: counts.Failed}
	switch {
	case !online:
		status.State = StateOffline
	case syncing:
		status.State = StateSyncing
	case counts.Pending > 0:
		status.State = StatePending
	default:
		status.State = StateIdle
	}
	return status
}

// Subscribe registers a listener invoked synchronously on every state
// transition. Ordering across listeners is unspecified. The returned
// function drops the subscription.
func (e *Engine) Subscribe(fn func(Status)) func() {
	e.mu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// notify broadcasts the current status when the state changed since the
// last broadcast. Listeners run outside the engine lock so they may call
// back into Status or Subscribe.
func (e *Engine) notify() {
	status := e.Status()

	e.mu.Lock()
	if status.State == e.lastState {
		e.mu.Unlock()
		return
	}
	e.lastState = status.State
	fns := make([]func(Status), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(status)
	}
}
