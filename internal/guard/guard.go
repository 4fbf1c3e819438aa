// Package guard implements the two named mutexes that serialize the submission pipeline
// and queue mutations, plus the self-cleaning TTL caches that short-circuit duplicate
// submissions.
package guard

import "sync"

// Guards holds the two non-reentrant mutexes. Lock acquisition follows a total order,
// submission before queue-operation, whenever a single flow needs both, to preclude
// deadlock.
type Guards struct {
	submission     sync.Mutex
	queueOperation sync.Mutex
}

// New creates an empty Guards.
func New() *Guards {
	return &Guards{}
}

// LockSubmission acquires the submission mutex, serializing the entire clip-submission
// pipeline to prevent duplicate inserts.
func (g *Guards) LockSubmission()   { g.submission.Lock() }
func (g *Guards) UnlockSubmission() { g.submission.Unlock() }

// LockQueueOperation acquires the queue-operation mutex, serializing advance, previous,
// play, jump-history, and batch queue writes.
func (g *Guards) LockQueueOperation()   { g.queueOperation.Lock() }
func (g *Guards) UnlockQueueOperation() { g.queueOperation.Unlock() }

// WithSubmission runs fn holding the submission mutex.
func (g *Guards) WithSubmission(fn func()) {
	g.LockSubmission()
	defer g.UnlockSubmission()
	fn()
}

// WithQueueOperation runs fn holding the queue-operation mutex.
func (g *Guards) WithQueueOperation(fn func()) {
	g.LockQueueOperation()
	defer g.UnlockQueueOperation()
	fn()
}
