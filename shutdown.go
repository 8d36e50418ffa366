package doublet

import (
	"errors"
	"sync"
)

// ShutdownAction is run by a ShutdownRegistrar when the process exits.
type ShutdownAction interface {
	Shutdown() error
}

// ShutdownRegistrar collects actions to run at process shutdown.
type ShutdownRegistrar interface {
	Register(action ShutdownAction)
	Unregister(action ShutdownAction)
}

// ShutdownHooks is a ShutdownRegistrar whose actions run when Run is called,
// typically deferred in main.
type ShutdownHooks struct {
	mu      sync.Mutex
	actions []ShutdownAction
}

// NewShutdownHooks creates an empty set of hooks.
func NewShutdownHooks() *ShutdownHooks {
	return &ShutdownHooks{}
}

// Register implements ShutdownRegistrar. Registering an action twice has no
// effect.
func (h *ShutdownHooks) Register(action ShutdownAction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range h.actions {
		if a == action {
			return
		}
	}
	h.actions = append(h.actions, action)
}

// Unregister implements ShutdownRegistrar.
func (h *ShutdownHooks) Unregister(action ShutdownAction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, a := range h.actions {
		if a == action {
			h.actions = append(h.actions[:i], h.actions[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered actions.
func (h *ShutdownHooks) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.actions)
}

// Run runs the registered actions in reverse registration order and clears
// them. All actions run even if some fail.
func (h *ShutdownHooks) Run() error {
	h.mu.Lock()
	actions := h.actions
	h.actions = nil
	h.mu.Unlock()

	var errs []error
	for i := len(actions) - 1; i >= 0; i-- {
		if err := actions[i].Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
