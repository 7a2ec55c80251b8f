package queue

import (
	"sync"

	"github.com/samber/lo"
)

// Registry maps queue names to their waiting participants.
// All methods are safe for concurrent use; each runs to completion under one lock.
type Registry struct {
	mu      sync.Mutex
	maxSize int
	queues  map[string][]Participant
	order   []string // names in order of first creation
}

// NewRegistry creates an empty registry. Sizes below 1 fall back to DefaultMaxSize.
func NewRegistry(maxSize int) *Registry {
	if maxSize < 1 {
		maxSize = DefaultMaxSize
	}

	return &Registry{
		maxSize: maxSize,
		queues:  make(map[string][]Participant),
	}
}

// MaxSize returns the capacity applied to every queue.
func (r *Registry) MaxSize() int {
	return r.maxSize
}

// Enqueue appends p to the named queue, creating the queue on first use.
// The caller must pass a non-empty name.
func (r *Registry) Enqueue(name string, p Participant) EnqueueResult {
	name = NormalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	members, exists := r.queues[name]
	result := EnqueueResult{Queue: name, Participant: p, Capacity: r.maxSize}

	if idx := indexOf(members, p.ID); idx >= 0 {
		result.Status = AlreadyQueued
		result.Position = idx + 1
		return result
	}

	if len(members) >= r.maxSize {
		result.Status = Full
		return result
	}

	// The queue only enters the map once the append is committed, so a
	// rejected call can never leave an empty entry behind.
	members = append(members, p)
	result.Position = len(members)
	result.Created = !exists

	if len(members) == r.maxSize {
		r.remove(name)
		result.Status = AddedAndFilled
		return result
	}

	if !exists {
		r.order = append(r.order, name)
	}
	r.queues[name] = members
	result.Status = Added

	return result
}

// Dequeue removes and returns the participant at the front of the named queue.
func (r *Registry) Dequeue(name string) DequeueResult {
	name = NormalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	members, exists := r.queues[name]
	if !exists || len(members) == 0 {
		return DequeueResult{Status: NotFoundOrEmpty, Queue: name}
	}

	front := members[0]
	members[0] = Participant{}
	members = members[1:]

	result := DequeueResult{Status: Removed, Queue: name, Participant: front}

	if len(members) == 0 {
		r.remove(name)
		result.Retired = true
		return result
	}

	r.queues[name] = members
	return result
}

// Describe returns a snapshot of the named queue. ok is false when no live
// queue exists under that name.
func (r *Registry) Describe(name string) (snap Snapshot, ok bool) {
	name = NormalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	members, exists := r.queues[name]
	if !exists {
		return Snapshot{}, false
	}

	return r.snapshot(name, members), true
}

// DescribeAll returns a snapshot of every live queue in creation order.
func (r *Registry) DescribeAll() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Map(r.order, func(name string, _ int) Snapshot {
		return r.snapshot(name, r.queues[name])
	})
}

// Len returns the number of live queues.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

// Waiting returns the number of participants across all live queues.
func (r *Registry) Waiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.SumBy(lo.Values(r.queues), func(members []Participant) int {
		return len(members)
	})
}

func (r *Registry) snapshot(name string, members []Participant) Snapshot {
	participants := make([]Participant, len(members))
	copy(participants, members)

	return Snapshot{
		Name:         name,
		Participants: participants,
		Capacity:     r.maxSize,
	}
}

// remove deletes name from the map and the creation order. Caller holds mu.
func (r *Registry) remove(name string) {
	delete(r.queues, name)
	r.order = lo.Without(r.order, name)
}

func indexOf(members []Participant, id string) int {
	_, idx, found := lo.FindIndexOf(members, func(p Participant) bool {
		return p.ID == id
	})
	if !found {
		return -1
	}
	return idx
}
