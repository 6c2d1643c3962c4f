package audio

import "sync"

// frameQueue holds decoded frames awaiting playback. Frames come out in
// the order they went in; Clear discards everything not yet popped.
type frameQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames [][]int16
	closed bool
}

func newFrameQueue() *frameQueue {
	q := &frameQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a frame to the tail of the queue.
func (q *frameQueue) push(frame []int16) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.frames = append(q.frames, frame)
	q.cond.Signal()
}

// pop removes and returns the head frame, blocking until one is
// available or the queue is closed. The second return is false only
// after close.
func (q *frameQueue) pop() ([]int16, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.frames) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.frames) == 0 {
		return nil, false
	}

	frame := q.frames[0]
	q.frames = q.frames[1:]
	return frame, true
}

// clear drops all queued frames without closing the queue.
func (q *frameQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frames = nil
}

// empty reports whether nothing is queued.
func (q *frameQueue) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames) == 0
}

// close wakes any blocked pop. Queued frames are discarded.
func (q *frameQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.frames = nil
	q.cond.Broadcast()
}
