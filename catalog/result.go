package catalog

// Result carries either typed data or a user-facing failure message.
// Service methods never return errors; callers check OK.
type Result[T any] struct {
	Data    T
	Message string
	ok      bool
}

// Ok wraps a successful value
func Ok[T any](data T) Result[T] {
	return Result[T]{Data: data, ok: true}
}

// Fail wraps a failure message
func Fail[T any](message string) Result[T] {
	return Result[T]{Message: message}
}

// OK reports whether the call succeeded
func (r Result[T]) OK() bool {
	return r.ok
}

// Unit is the data of results that carry no value
type Unit struct{}
