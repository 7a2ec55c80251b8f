// Package queue holds the registry of named, capacity-bounded FIFO wait-lists.
//
// Invariants:
//   - Queue names are compared case-insensitively (normalized to lowercase).
//   - A stored queue always holds between 1 and MaxSize-1 participants once an
//     operation returns; a queue that empties or fills is removed from the registry.
//   - A participant ID appears at most once per queue.
//   - Enqueue only appends to the back and Dequeue only pops the front.
//
// Usage:
//
//	reg := queue.NewRegistry(queue.DefaultMaxSize)
//	res := reg.Enqueue("Ranked", queue.Participant{ID: "42", DisplayName: "ana"})
//	if res.Status == queue.AddedAndFilled {
//		// announce that "ranked" closed
//	}
package queue
