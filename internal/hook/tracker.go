package hook

import "context"

// Tracker knows which container is current in one execution.
type Tracker interface {
	Current() string
}

type trackerKey struct{}

func WithTracker(ctx context.Context, t Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// CurrentUUID returns the current container of the execution bound to ctx.
func CurrentUUID(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(trackerKey{}).(Tracker)
	if !ok || t == nil {
		return "", false
	}

	uuid := t.Current()

	return uuid, uuid != ""
}
