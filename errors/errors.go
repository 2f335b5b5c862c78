package errors

import "fmt"

var (
	ErrWorkerPanic  = fmt.Errorf("worker panic")
	ErrSinkFull     = fmt.Errorf("sink buffer full")
	ErrConnClosed   = fmt.Errorf("connection closed")
	ErrUnknownEvent = fmt.Errorf("unknown event name")
)
