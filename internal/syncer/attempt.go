package syncer

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type attemptKey struct{}

// AttemptID returns the id of the persist attempt that ctx was created for,
// or "" outside a persist.
func AttemptID(ctx context.Context) string {
	id, _ := ctx.Value(attemptKey{}).(string)
	return id
}

func withAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptKey{}, id)
}

func newULID() string {
	return ulid.Make().String()
}
