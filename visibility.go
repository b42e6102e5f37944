package campath

import "sync"

// VisibilityState is the process-wide helper-visibility toggle shared by the
// rendering side and UI chrome.
type VisibilityState struct {
	HelpersVisible bool
}

// visibilityStore is a module-scoped singleton. It initializes to visible
// and lives for the process lifetime; the boolean is last-write-wins.
type visibilityStore struct {
	mu        sync.Mutex
	state     VisibilityState
	nextID    int
	listeners map[int]func(VisibilityState)
}

var visibility = &visibilityStore{
	state:     VisibilityState{HelpersVisible: true},
	listeners: make(map[int]func(VisibilityState)),
}

// HelpersState returns the current visibility state.
func HelpersState() VisibilityState {
	visibility.mu.Lock()
	defer visibility.mu.Unlock()
	return visibility.state
}

// SetHelpersVisible sets the helpers-visible flag. Listeners are notified
// only if the boolean actually changes.
func SetHelpersVisible(v bool) {
	visibility.mu.Lock()
	if visibility.state.HelpersVisible == v {
		visibility.mu.Unlock()
		return
	}
	visibility.state.HelpersVisible = v
	state := visibility.state
	fns := make([]func(VisibilityState), 0, len(visibility.listeners))
	for _, fn := range visibility.listeners {
		fns = append(fns, fn)
	}
	visibility.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// SubscribeHelpers registers a listener for visibility changes and returns
// its unsubscribe function.
func SubscribeHelpers(fn func(VisibilityState)) (unsubscribe func()) {
	visibility.mu.Lock()
	id := visibility.nextID
	visibility.nextID++
	visibility.listeners[id] = fn
	visibility.mu.Unlock()

	return func() {
		visibility.mu.Lock()
		delete(visibility.listeners, id)
		visibility.mu.Unlock()
	}
}

// ResolveVisibility maps the global helpers flag and an explicit
// force-visible override to a display mode.
func ResolveVisibility(forceVisible bool) Visibility {
	if forceVisible {
		return VisibilityAlways
	}
	if HelpersState().HelpersVisible {
		return VisibilityEditorOnly
	}
	return VisibilityHidden
}
