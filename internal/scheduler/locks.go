package scheduler

import "context"

// chanMutex is a mutex whose Lock honors context cancellation, so an
// abandoned request does not queue forever behind a slow switch.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	m := make(chanMutex, 1)
	m <- struct{}{}
	return m
}

func (m chanMutex) Lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chanMutex) Unlock() {
	m <- struct{}{}
}
