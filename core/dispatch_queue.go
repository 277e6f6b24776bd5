package core

import (
	"context"
	"fmt"
	"sync"
)

// MemoryDispatchQueue is the bounded in-process queue between the write paths
// and the dispatch worker. Enqueue never blocks: when the buffer is full the
// caller gets an error and the event is dropped, which keeps backpressure
// away from ingestion.
type MemoryDispatchQueue struct {
	messages chan *DispatchMessage
}

func NewMemoryDispatchQueue(size int) *MemoryDispatchQueue {
	if size < 1 {
		size = DefaultConfig().Dispatch.QueueSize
	}
	return &MemoryDispatchQueue{
		messages: make(chan *DispatchMessage, size),
	}
}

func (q *MemoryDispatchQueue) Enqueue(ctx context.Context, msg *DispatchMessage) error {
	if q == nil {
		return fmt.Errorf("core: dispatch queue is nil")
	}
	if msg == nil {
		return fmt.Errorf("core: dispatch message is required")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	select {
	case q.messages <- msg:
		return nil
	default:
		return fmt.Errorf("core: dispatch queue is full")
	}
}

func (q *MemoryDispatchQueue) Dequeue(ctx context.Context) (DispatchDelivery, error) {
	if q == nil {
		return nil, fmt.Errorf("core: dispatch queue is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-q.messages:
		return &memoryDispatchDelivery{queue: q, message: msg}, nil
	}
}

// Len reports how many messages are waiting. Meant for health reporting.
func (q *MemoryDispatchQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.messages)
}

type memoryDispatchDelivery struct {
	queue   *MemoryDispatchQueue
	message *DispatchMessage

	mu      sync.Mutex
	settled bool
}

func (d *memoryDispatchDelivery) Message() *DispatchMessage {
	if d == nil {
		return nil
	}
	return d.message
}

func (d *memoryDispatchDelivery) Ack(context.Context) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settled = true
	return nil
}

func (d *memoryDispatchDelivery) Nack(ctx context.Context, opts DispatchNackOptions) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return nil
	}
	d.settled = true
	d.mu.Unlock()

	if !opts.Requeue || opts.DeadLetter {
		return nil
	}
	return d.queue.Enqueue(ctx, d.message)
}
