package engine

import "context"

type depthKey struct{}

// Depth returns the current resolution nesting depth carried by ctx. A
// top-level dereference runs at depth 1.
func Depth(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}

func withDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}
