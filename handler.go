package ag

// A Handler receives gateway events. ServeEvent is only called from the
// gateway executor, one event at a time, and must not block.
type Handler interface {
	ServeEvent(e Event)
}

// HandlerFunc is an adapter to allow the use of ordinary functions as Handlers.
type HandlerFunc func(e Event)

// ServeEvent returns f(e).
func (f HandlerFunc) ServeEvent(e Event) {
	f(e)
}
