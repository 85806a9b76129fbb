package download

import "context"

// ProgressCallback is called as a download progresses, with the
// number of bytes written so far and the total size if known (0 when
// the server did not send Content-Length).
type ProgressCallback func(written, total int64)

// OutputCallback is called for each line of subprocess output.
type OutputCallback func(line string)

// Callback is a type constraint for callback functions that can be stored in context.
type Callback interface {
	ProgressCallback | OutputCallback
}

type callbackKey[T Callback] struct{}

// WithCallback returns a context with the given callback.
func WithCallback[T Callback](ctx context.Context, cb T) context.Context {
	return context.WithValue(ctx, callbackKey[T]{}, cb)
}

// CallbackFromContext extracts the callback from context, or the zero value.
func CallbackFromContext[T Callback](ctx context.Context) T {
	if cb, ok := ctx.Value(callbackKey[T]{}).(T); ok {
		return cb
	}
	var zero T
	return zero
}
