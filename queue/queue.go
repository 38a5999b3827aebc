package queue

import (
	"sync"

	"github.com/ftl/tc1000/tc"
)

// Stack is an unbounded last-in-first-out queue that is safe for concurrent use.
// Push never blocks; Pop and Drain only hold the lock for the time needed to examine the content.
type Stack[T any] struct {
	lock  sync.Mutex
	items []T
}

func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

func (s *Stack[T]) Push(item T) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.items = append(s.items, item)
}

// Pop removes and returns the most recently pushed item.
func (s *Stack[T]) Pop() (T, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var result T
	if len(s.items) == 0 {
		return result, false
	}
	last := len(s.items) - 1
	result = s.items[last]
	s.items[last] = *new(T)
	s.items = s.items[:last]
	return result, true
}

// Drain removes all items and returns them in pop order, newest first.
func (s *Stack[T]) Drain() []T {
	s.lock.Lock()
	items := s.items
	s.items = nil
	s.lock.Unlock()

	result := make([]T, len(items))
	for i, item := range items {
		result[len(items)-1-i] = item
	}
	return result
}

func (s *Stack[T]) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.items)
}

// Bridge holds the two queues between the I/O worker and the consumer.
type Bridge struct {
	// Inbound carries raw lines from the I/O worker to the consumer.
	Inbound *Stack[[]byte]
	// Outbound carries commands from the consumer to the I/O worker.
	Outbound *Stack[tc.Command]
}

func NewBridge() *Bridge {
	return &Bridge{
		Inbound:  NewStack[[]byte](),
		Outbound: NewStack[tc.Command](),
	}
}
