package web

import (
	"sync"

	"github.com/lucasnoah/autodevops/internal/run"
)

// feed fans one run's update stream out to any number of subscribers
// and retains the latest state for late joiners.
type feed struct {
	mu     sync.Mutex
	latest run.Update
	subs   map[chan run.Update]struct{}
	done   bool
}

func newFeed() *feed {
	return &feed{subs: make(map[chan run.Update]struct{})}
}

// publish stores the update and delivers it to every subscriber. Slow
// subscribers drop intermediate updates rather than stalling the run.
func (f *feed) publish(u run.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = u
	for ch := range f.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// finish closes every subscriber channel.
func (f *feed) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = true
	for ch := range f.subs {
		close(ch)
	}
	f.subs = make(map[chan run.Update]struct{})
}

func (f *feed) finished() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// snapshot returns the latest published state.
func (f *feed) snapshot() run.Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

// subscribe returns the latest state plus a channel of subsequent
// updates. For a finished run the channel is already closed.
func (f *feed) subscribe() (run.Update, chan run.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan run.Update, 16)
	if f.done {
		close(ch)
		return f.latest, ch
	}
	f.subs[ch] = struct{}{}
	return f.latest, ch
}

func (f *feed) unsubscribe(ch chan run.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
}

// maxRetainedFeeds bounds how many run states a long-lived server
// keeps in memory. Live feeds are never evicted.
const maxRetainedFeeds = 256

// hub tracks the feed of every launched run by simulation id,
// evicting the oldest finished feeds once the retention cap is hit.
type hub struct {
	mu    sync.RWMutex
	feeds map[string]*feed
	order []string
	limit int
}

func newHub() *hub {
	return newHubCap(maxRetainedFeeds)
}

func newHubCap(limit int) *hub {
	return &hub{feeds: make(map[string]*feed), limit: limit}
}

func (h *hub) put(simulationID string, f *feed) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.feeds[simulationID] = f
	h.order = append(h.order, simulationID)
	for len(h.feeds) > h.limit {
		if !h.evictOldestFinishedLocked() {
			break
		}
	}
}

func (h *hub) evictOldestFinishedLocked() bool {
	for i, id := range h.order {
		if f := h.feeds[id]; f != nil && !f.finished() {
			continue
		}
		h.order = append(h.order[:i], h.order[i+1:]...)
		delete(h.feeds, id)
		return true
	}
	return false
}

func (h *hub) get(simulationID string) (*feed, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.feeds[simulationID]
	return f, ok
}
