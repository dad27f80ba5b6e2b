// Package framestore holds the Placement Engine's two bounded frame
// caches: the pre-maximize store (the frame a window had just before a
// fullscreen/maximize toggle, so "un-maximize" can restore it) and the
// hidden store (the frame a window had before being parked off-screen).
// Grounded on mac-winops/src/frame_storage.rs; both are capacity-bounded
// LRUs since an unbounded map would leak one entry per window/app churn
// over a long-running daemon.
package framestore

import (
	"container/list"
	"sync"

	"github.com/hotki-project/hotki-world/internal/geom"
)

type key struct {
	PID int32
	ID  uint32
}

// Store is a fixed-capacity LRU mapping a window key to a saved frame.
// Touching an entry (Get or Put) moves it to the front; once capacity is
// exceeded the least-recently-used entry is evicted.
type Store struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	elems    map[key]*list.Element
}

type entry struct {
	k    key
	rect geom.Rect
}

func New(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		order:    list.New(),
		elems:    make(map[key]*list.Element),
	}
}

func (s *Store) Put(pid int32, id uint32, rect geom.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{PID: pid, ID: id}
	if el, ok := s.elems[k]; ok {
		el.Value.(*entry).rect = rect
		s.order.MoveToFront(el)
		return
	}
	el := s.order.PushFront(&entry{k: k, rect: rect})
	s.elems[k] = el
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.elems, oldest.Value.(*entry).k)
	}
}

func (s *Store) Get(pid int32, id uint32) (geom.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{PID: pid, ID: id}
	el, ok := s.elems[k]
	if !ok {
		return geom.Rect{}, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*entry).rect, true
}

// Take returns and removes the saved frame, if any — the usual access
// pattern for a one-shot restore (un-maximize, un-hide).
func (s *Store) Take(pid int32, id uint32) (geom.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{PID: pid, ID: id}
	el, ok := s.elems[k]
	if !ok {
		return geom.Rect{}, false
	}
	rect := el.Value.(*entry).rect
	s.order.Remove(el)
	delete(s.elems, k)
	return rect, true
}

func (s *Store) Delete(pid int32, id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{PID: pid, ID: id}
	if el, ok := s.elems[k]; ok {
		s.order.Remove(el)
		delete(s.elems, k)
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
