// Package busctx carries per-invocation transport settings through context.
package busctx

import "context"

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexDryRun
)

// IsVerbose reports whether transports should dump wire traffic.
func IsVerbose(ctx context.Context) bool {
	val := ctx.Value(ctxIndexVerbose)
	if val == nil {
		return false
	}
	return val.(bool)
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// IsDryRun reports whether block writes should be logged instead of sent.
func IsDryRun(ctx context.Context) bool {
	val := ctx.Value(ctxIndexDryRun)
	if val == nil {
		return false
	}
	return val.(bool)
}

func SetDryRun(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexDryRun, value)
}
