// Package commandqueue runs tasks through named FIFO lanes.
//
// Invariants:
//   - Tasks in the same lane run one at a time, in the order they were enqueued.
//   - Tasks in different lanes may run concurrently.
//   - A lane exists only while it has pending or running work.
//
// Usage:
//
//	cq := commandqueue.New(logger)
//	defer cq.Close()
//	result, err := cq.Enqueue(ctx, "queue:ranked", func(ctx context.Context) (interface{}, error) {
//		return registry.Dequeue("ranked"), nil
//	})
package commandqueue
