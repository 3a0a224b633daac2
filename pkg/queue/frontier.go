package queue

import (
	"container/heap"
	"sync"

	"github.com/YallaPapi/pubscrape-sub007/pkg/models"
)

// Lane selects which of the frontier's two queues a link waits in
type Lane int

const (
	LaneHigh   Lane = iota // Priority page types, dequeued first
	LaneNormal             // Everything else
)

// fItem represents a queued link in the frontier heap
type fItem struct {
	link  models.DiscoveredLink
	lane  Lane
	seq   int64 // Discovery order, preserved across promotion
	index int   // Heap index (required by heap interface)
}

// frontierHeap implements heap.Interface ordered by lane, then discovery
// order. Pop returns the oldest high-lane item, falling back to the oldest
// normal-lane item.
type frontierHeap []*fItem

func (h frontierHeap) Len() int { return len(h) }

func (h frontierHeap) Less(i, j int) bool {
	if h[i].lane != h[j].lane {
		return h[i].lane < h[j].lane
	}
	return h[i].seq < h[j].seq
}

func (h frontierHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

// Push adds an element to the heap
func (h *frontierHeap) Push(x any) {
	n := len(*h)
	item := x.(*fItem)
	item.index = n
	*h = append(*h, item)
}

// Pop removes and returns the front element of the heap
func (h *frontierHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	*h = old[0 : n-1]
	return item
}

// Frontier is a session's two-lane discovery queue. High-lane links are
// always dequeued before normal-lane links; within a lane, order is stable
// FIFO by discovery. Each URL appears at most once: re-enqueueing an already
// queued URL with a high-lane classification promotes it in place, keeping
// its original discovery order.
type Frontier struct {
	heap  frontierHeap
	byURL map[string]*fItem
	seq   int64
	mu    sync.Mutex
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	f := &Frontier{byURL: make(map[string]*fItem)}
	heap.Init(&f.heap)
	return f
}

// Enqueue adds a link to the given lane, keyed by its (normalized) URL.
// Returns true if the URL was newly queued. If the URL is already waiting,
// a high-lane enqueue promotes it and a higher-confidence observation
// replaces the stored link; either way the return is false.
func (f *Frontier) Enqueue(link models.DiscoveredLink, lane Lane) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.byURL[link.URL]; ok {
		changed := false
		if lane == LaneHigh && existing.lane == LaneNormal {
			existing.lane = LaneHigh
			changed = true
		}
		if link.Confidence > existing.link.Confidence {
			existing.link = link
		}
		if changed {
			heap.Fix(&f.heap, existing.index)
		}
		return false
	}

	item := &fItem{link: link, lane: lane, seq: f.seq}
	f.seq++
	f.byURL[link.URL] = item
	heap.Push(&f.heap, item)
	return true
}

// Pop removes and returns the next link: oldest high-lane first, then oldest
// normal-lane. Returns false when the frontier is empty.
func (f *Frontier) Pop() (models.DiscoveredLink, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.heap) == 0 {
		return models.DiscoveredLink{}, false
	}
	item := heap.Pop(&f.heap).(*fItem)
	delete(f.byURL, item.link.URL)
	return item.link, true
}

// contains reports whether a URL is currently queued
func (f *Frontier) contains(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byURL[url]
	return ok
}

// Len returns the number of queued links across both lanes
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.heap)
}

// HighLen returns the number of links waiting in the high lane
func (f *Frontier) HighLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, item := range f.heap {
		if item.lane == LaneHigh {
			n++
		}
	}
	return n
}
