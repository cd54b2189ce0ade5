package engine

// requestQueue is a plain FIFO of pending edit requests. It carries no lock
// of its own: every access happens under the engine mutex, and the
// controller's single-active-task rule means there is never competing
// dequeue traffic.
type requestQueue struct {
	items []*EditRequest
}

func (q *requestQueue) enqueue(req *EditRequest) {
	q.items = append(q.items, req)
}

// popFront removes and returns the oldest request, or nil when empty.
func (q *requestQueue) popFront() *EditRequest {
	if len(q.items) == 0 {
		return nil
	}
	req := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return req
}

func (q *requestQueue) size() int {
	return len(q.items)
}

func (q *requestQueue) clear() {
	q.items = nil
}
