package dedup

import "fmt"

type StoreInitError struct {
	Backend string
	Err     error
}

func (e *StoreInitError) Error() string {
	return fmt.Sprintf("init %s store: %v", e.Backend, e.Err)
}

func (e *StoreInitError) Unwrap() error { return e.Err }

type StoreQueryError struct {
	ID  string
	Err error
}

func (e *StoreQueryError) Error() string {
	return fmt.Sprintf("is sent %q: %v", e.ID, e.Err)
}

func (e *StoreQueryError) Unwrap() error { return e.Err }

type StoreWriteError struct {
	ID  string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("mark sent %q: %v", e.ID, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

type UnsupportedStoreError struct {
	Scheme string
}

func (e *UnsupportedStoreError) Error() string {
	return fmt.Sprintf("unsupported store scheme %q", e.Scheme)
}
