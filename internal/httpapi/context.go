package httpapi

import (
	"context"
)

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a child of req that is also canceled when base is done.
// Request-scoped values (request id) stay reachable. The returned cancel func
// must be called when the handler ends.
func joinContexts(req, base context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	if base.Err() != nil {
		cancel()
		return ctx, cancel
	}
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
