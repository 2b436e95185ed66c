package requestqueue

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueClosed resolves waiters submitted to, or still pending in, a closed queue
	ErrQueueClosed = errors.New("request queue closed")

	// ErrSuperseded resolves waiters whose pending request was dropped by Supersede
	ErrSuperseded = errors.New("request superseded")

	// ErrNoResponse is reported when a transport returns neither a response nor an error
	ErrNoResponse = errors.New("transport returned no response")

	// ErrNotResolved is returned by Waiter.Result before the waiter resolves
	ErrNotResolved = errors.New("waiter not resolved")
)

// PanicError is the failure delivered to waiters when the transport panics.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("transport panic: %v", e.Value)
}
