package queue

// EnqueueStatus is the outcome of an enqueue.
type EnqueueStatus int

const (
	// Added means the participant was appended and the queue still has room.
	Added EnqueueStatus = iota + 1
	// AddedAndFilled means the append filled the queue and it was retired.
	AddedAndFilled
	// AlreadyQueued means the participant was already waiting; nothing changed.
	AlreadyQueued
	// Full means the queue was at capacity; nothing changed.
	Full
)

func (s EnqueueStatus) String() string {
	switch s {
	case Added:
		return "added"
	case AddedAndFilled:
		return "added_and_filled"
	case AlreadyQueued:
		return "already_queued"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// EnqueueResult describes what Enqueue did.
type EnqueueResult struct {
	Status      EnqueueStatus
	Queue       string
	Participant Participant
	Capacity    int
	// Position is the 1-based place of the participant after the call,
	// zero when the participant is not in the queue.
	Position int
	// Created is set when this call brought the queue into existence.
	Created bool
}

// DequeueStatus is the outcome of a dequeue.
type DequeueStatus int

const (
	// Removed means the front participant left the queue.
	Removed DequeueStatus = iota + 1
	// NotFoundOrEmpty means no live queue exists under the name.
	NotFoundOrEmpty
)

func (s DequeueStatus) String() string {
	switch s {
	case Removed:
		return "removed"
	case NotFoundOrEmpty:
		return "not_found_or_empty"
	default:
		return "unknown"
	}
}

// DequeueResult describes what Dequeue did.
type DequeueResult struct {
	Status      DequeueStatus
	Queue       string
	Participant Participant
	// Retired is set when the dequeue emptied the queue and it was removed.
	Retired bool
}

// Snapshot is an immutable view of a queue.
type Snapshot struct {
	Name         string
	Participants []Participant
	Capacity     int
}

// Len returns the number of waiting participants.
func (s Snapshot) Len() int {
	return len(s.Participants)
}

// Free returns the number of open slots.
func (s Snapshot) Free() int {
	if free := s.Capacity - len(s.Participants); free > 0 {
		return free
	}
	return 0
}
