package review

import (
	"context"
	"sync"
)

type commitHooksKey struct{}

// commitHooks collects callbacks that must wait until a transaction commits.
type commitHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

func withCommitHooks(ctx context.Context, hooks *commitHooks) context.Context {
	return context.WithValue(ctx, commitHooksKey{}, hooks)
}

func (h *commitHooks) add(fn func(ctx context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

func (h *commitHooks) run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

// AfterCommit defers fn until the MovieManager transaction carried by ctx has
// committed and reports whether it did. Outside such a transaction it returns
// false and fn is not called. Callbacks of a rolled back transaction are dropped.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) bool {
	hooks, ok := ctx.Value(commitHooksKey{}).(*commitHooks)
	if !ok {
		return false
	}
	hooks.add(fn)
	return true
}
