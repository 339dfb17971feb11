// Package cache provides a small generic LRU cache with TTL expiry, used to
// memoize per-owner dashboard metrics between mutations.
package cache

import "time"

// Cache is the read/write surface served to callers.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Size() int
}

// Sweeper is implemented by caches that can drop expired entries eagerly.
type Sweeper interface {
	SweepExpired() int
}

// Janitor periodically sweeps expired entries out of registered caches so
// idle owners do not pin memory until their next request.
type Janitor struct {
	caches  []Sweeper
	stop    chan struct{}
	done    chan struct{}
	started bool
}

func NewJanitor() *Janitor {
	return &Janitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cache to the sweep rotation. Not safe to call after Start.
func (j *Janitor) Register(c Sweeper) {
	j.caches = append(j.caches, c)
}

// Start launches the sweep loop. Starting twice is a no-op.
func (j *Janitor) Start(interval time.Duration) {
	if j.started {
		return
	}
	j.started = true
	go j.run(interval)
}

func (j *Janitor) run(interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, c := range j.caches {
				c.SweepExpired()
			}
		case <-j.stop:
			return
		}
	}
}

// Stop halts the sweep loop and waits for it to exit. Stopping a janitor
// that was never started is a no-op.
func (j *Janitor) Stop() {
	if !j.started {
		return
	}
	j.started = false
	close(j.stop)
	<-j.done
}
