package crawler

// frontier is the FIFO queue of pending page URLs for a single crawl.
// Membership is tracked so a URL is never queued twice.
type frontier struct {
	queue  []string
	queued map[string]struct{}
}

func newFrontier(seed string) *frontier {
	f := &frontier{queued: make(map[string]struct{})}
	f.push(seed)
	return f
}

func (f *frontier) push(u string) {
	if _, ok := f.queued[u]; ok {
		return
	}
	f.queued[u] = struct{}{}
	f.queue = append(f.queue, u)
}

// pushFront requeues a URL at the head of the queue. Used for rate-limit
// retries and seed alternates, which must be attempted before anything else.
func (f *frontier) pushFront(u string) {
	f.queued[u] = struct{}{}
	f.queue = append([]string{u}, f.queue...)
}

func (f *frontier) pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	u := f.queue[0]
	f.queue = f.queue[1:]
	return u, true
}

func (f *frontier) contains(u string) bool {
	_, ok := f.queued[u]
	return ok
}

func (f *frontier) empty() bool {
	return len(f.queue) == 0
}
