package shared

import "context"

// RequestContext carries the acting user and active channel for a request.
// The transport layer builds it; services only read it.
type RequestContext struct {
	// ActiveUserID is zero when the request is anonymous.
	ActiveUserID int64
	// ActiveChannelID identifies the channel the request operates on.
	ActiveChannelID int64
}

// Authenticated reports whether an acting user is present.
func (rc *RequestContext) Authenticated() bool {
	return rc != nil && rc.ActiveUserID != 0
}

type requestContextKey struct{}

// ContextWithRequest stores the request context in ctx.
func ContextWithRequest(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestFromContext extracts the request context, or nil when absent.
func RequestFromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc
}
