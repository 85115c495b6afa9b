package browser

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Recorder is a ResponseWatch fed by an engine's response events.
type Recorder struct {
	filter ResponseFilter

	mu      sync.Mutex
	seen    []Response
	stopped bool
	notify  chan struct{}
}

// NewRecorder starts collecting responses that match filter.
func NewRecorder(filter ResponseFilter) *Recorder {
	return &Recorder{
		filter: filter,
		notify: make(chan struct{}, 1),
	}
}

// Offer records r if it matches and the recorder is still running.
func (r *Recorder) Offer(resp Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || !r.filter.Match(resp) {
		return
	}
	r.seen = append(r.seen, resp)
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Wait returns the first recorded response, waiting up to timeout for one.
func (r *Recorder) Wait(ctx context.Context, timeout time.Duration) (Response, error) {
	timer := time.NewTimer(Timeout(ctx, timeout))
	defer timer.Stop()

	for {
		r.mu.Lock()
		if len(r.seen) > 0 {
			resp := r.seen[0]
			r.mu.Unlock()
			return resp, nil
		}
		r.mu.Unlock()

		select {
		case <-r.notify:
		case <-timer.C:
			return Response{}, fmt.Errorf("%w: no response matching %+v", ErrTimeout, r.filter)
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
}

// Seen returns a copy of everything recorded so far.
func (r *Recorder) Seen() []Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Response(nil), r.seen...)
}

// Stop ignores further responses.
func (r *Recorder) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// Hub fans one engine response listener out to the watches that are
// currently running. Stopped watches are dropped from the hub.
type Hub struct {
	mu      sync.Mutex
	watches map[*hubWatch]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{watches: make(map[*hubWatch]struct{})}
}

// Watch starts a recorder for filter that receives every later Offer.
func (h *Hub) Watch(filter ResponseFilter) ResponseWatch {
	w := &hubWatch{Recorder: NewRecorder(filter), hub: h}
	h.mu.Lock()
	h.watches[w] = struct{}{}
	h.mu.Unlock()
	return w
}

// Offer passes resp to every running watch.
func (h *Hub) Offer(resp Response) {
	h.mu.Lock()
	watches := make([]*hubWatch, 0, len(h.watches))
	for w := range h.watches {
		watches = append(watches, w)
	}
	h.mu.Unlock()

	for _, w := range watches {
		w.Offer(resp)
	}
}

// Active returns the number of running watches.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watches)
}

type hubWatch struct {
	*Recorder
	hub *Hub
}

func (w *hubWatch) Stop() {
	w.Recorder.Stop()
	w.hub.mu.Lock()
	delete(w.hub.watches, w)
	w.hub.mu.Unlock()
}
