package kprod

import (
	"errors"
	"sync"
	"time"
)

// The ring type is a dynamically-sized circular buffer shared between many
// producing goroutines and the single dispatcher. The buffer starts at
// capacity 8 and grows as needed; when it empties, it shrinks back to
// capacity 8 to release memory.
//
// A ring with maxLen > 0 is bounded: pushes wait for space for at most their
// timeout and then fail. A ring with maxLen 0 is unbounded: pushes never
// block and never fail. Pops wait for an element for at most their timeout.
//
// Timed waits are implemented by broadcasting on the cond when a timer
// fires; waiters recheck their own deadline after every wakeup.

const minRingCap = 8

var (
	errRingFull = errors.New("ring is at capacity")
	errRingDead = errors.New("ring is dead")
)

type ring[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	elems []T // circular buffer, min capacity minRingCap
	head  int // index of first element
	l     int // number of elements

	maxLen int // if >0, push waits while l >= maxLen
	dead   bool
}

func newRing[T any](maxLen int) *ring[T] {
	r := &ring[T]{maxLen: maxLen}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *ring[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.l
}

// die permanently fails the ring, waking all waiters. Pushes after die fail
// and pops after die drain nothing.
func (r *ring[T]) die() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dead = true
	r.cond.Broadcast()
}

// push appends elem, waiting up to timeout for space if the ring is bounded
// and full. A non-positive timeout fails immediately on a full ring.
func (r *ring[T]) push(elem T, timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxLen > 0 && r.l >= r.maxLen && !r.dead {
		if timeout <= 0 {
			return errRingFull
		}
		deadline := time.Now().Add(timeout)
		wake := time.AfterFunc(timeout, r.cond.Broadcast)
		defer wake.Stop()
		for r.maxLen > 0 && r.l >= r.maxLen && !r.dead {
			if !time.Now().Before(deadline) {
				return errRingFull
			}
			r.cond.Wait()
		}
	}

	if r.dead {
		return errRingDead
	}

	if r.l == cap(r.elems) {
		r.resize(max(cap(r.elems)*2, minRingCap))
	}

	writePos := (r.head + r.l) % cap(r.elems)
	r.elems[writePos] = elem
	r.l++

	r.cond.Broadcast()
	return nil
}

// pop removes and returns the oldest element, waiting up to timeout for one
// to arrive. A non-positive timeout polls without waiting.
func (r *ring[T]) pop(timeout time.Duration) (elem T, ok bool) {
	var zero T

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.l == 0 && !r.dead && timeout > 0 {
		deadline := time.Now().Add(timeout)
		wake := time.AfterFunc(timeout, r.cond.Broadcast)
		defer wake.Stop()
		for r.l == 0 && !r.dead {
			if !time.Now().Before(deadline) {
				break
			}
			r.cond.Wait()
		}
	}

	if r.l == 0 {
		return zero, false
	}

	elem = r.elems[r.head]
	r.elems[r.head] = zero
	r.head = (r.head + 1) % cap(r.elems)
	r.l--

	// Signal any waiting pushers that space is available.
	r.cond.Broadcast()

	// Shrink when mostly empty to release memory.
	if r.l <= minRingCap/2 && cap(r.elems) > minRingCap {
		r.resize(minRingCap)
	}

	return elem, true
}

// resize changes the buffer capacity, copying elements in linear order.
// Must be called with r.mu held.
func (r *ring[T]) resize(newCap int) {
	newElems := make([]T, newCap)
	if r.l > 0 {
		if r.head+r.l <= len(r.elems) {
			copy(newElems, r.elems[r.head:r.head+r.l])
		} else {
			n := copy(newElems, r.elems[r.head:])
			copy(newElems[n:], r.elems[:r.l-n])
		}
	}
	r.elems = newElems
	r.head = 0
}
