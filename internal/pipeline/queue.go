package pipeline

// Queue is an unbounded FIFO with a channel-based consumer side. Put
// never blocks on consumer backpressure: a pump goroutine buffers items
// so a slow worker cannot stall the producer.
type Queue[T any] struct {
	in  chan T
	out chan T
}

// NewQueue creates a queue and starts its pump goroutine.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{
		in:  make(chan T),
		out: make(chan T),
	}
	go q.pump()
	return q
}

// Put enqueues an item. Must not be called after Close.
func (q *Queue[T]) Put(item T) {
	q.in <- item
}

// Items returns the consumer side. It is closed once Close has been
// called and the buffer has fully drained, preserving FIFO order.
func (q *Queue[T]) Items() <-chan T {
	return q.out
}

// Close stops intake; buffered items remain consumable.
func (q *Queue[T]) Close() {
	close(q.in)
}

func (q *Queue[T]) pump() {
	var buf []T
	in := q.in
	for in != nil || len(buf) > 0 {
		var out chan T
		var head T
		if len(buf) > 0 {
			out = q.out
			head = buf[0]
		}
		select {
		case item, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			buf = append(buf, item)
		case out <- head:
			buf = buf[1:]
		}
	}
	close(q.out)
}
