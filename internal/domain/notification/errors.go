package notification

import "fmt"

// FetchError aborts a whole poll cycle.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SendError is a failed delivery of a single message. Status and Body are set
// when the sink answered with a non-2xx response.
type SendError struct {
	Status int
	Body   string
	Err    error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("send: %v", e.Err)
	}
	return fmt.Sprintf("send: status %d: %s", e.Status, e.Body)
}

func (e *SendError) Unwrap() error { return e.Err }
