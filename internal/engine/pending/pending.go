// Package pending provides the per-document sequence of background work.
package pending

import "sync"

// Chain runs units of work one after another in the order they were
// chained, each on its own goroutine. The zero value is ready to use.
type Chain struct {
	mu   sync.Mutex
	tail chan struct{}
	n    int
}

// Then schedules fn to run after every unit chained before it and returns
// immediately.
func (c *Chain) Then(fn func()) {
	c.mu.Lock()
	prev := c.tail
	done := make(chan struct{})
	c.tail = done
	c.n++
	c.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		fn()
	}()
}

// Wait blocks until every unit chained so far has finished.
func (c *Chain) Wait() {
	c.mu.Lock()
	tail := c.tail
	c.mu.Unlock()

	if tail != nil {
		<-tail
	}
}

// Len returns the number of units ever chained.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
