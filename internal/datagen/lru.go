package datagen

import "container/list"

// lruKeySet is a bounded set of recently seen keys with LRU eviction. The
// writer uses one to drop duplicate games; each game loop uses a small one
// to avoid recording the same position twice.
type lruKeySet struct {
	capacity int
	order    *list.List
	lookup   map[uint64]*list.Element
}

func newLRUKeySet(capacity int) *lruKeySet {
	return &lruKeySet{
		capacity: capacity,
		order:    list.New(),
		lookup:   make(map[uint64]*list.Element),
	}
}

func (s *lruKeySet) contains(key uint64) bool {
	_, ok := s.lookup[key]
	return ok
}

func (s *lruKeySet) insert(key uint64) {
	if s.capacity == 0 {
		return
	}
	if el, ok := s.lookup[key]; ok {
		s.order.MoveToFront(el)
		return
	}
	s.lookup[key] = s.order.PushFront(key)
	if len(s.lookup) > s.capacity {
		last := s.order.Back()
		s.order.Remove(last)
		delete(s.lookup, last.Value.(uint64))
	}
}
