package book

import (
	"sort"

	"github.com/quantedge/hfmm/internal/fixedpoint"
)

// side is an ordered mapping from price to PriceLevel: descending for
// bids, ascending for asks. levels holds the backing map; order holds
// sorted price keys so best-of-book and depth walks are O(1)/O(depth)
// instead of rescanning the whole map.
type side struct {
	descending bool
	levels     map[fixedpoint.Price]*PriceLevel
	order      []fixedpoint.Price // kept sorted per `descending`
	dirty      bool
	cache      []PriceLevel
}

func newSide(descending bool) *side {
	return &side{
		descending: descending,
		levels:     make(map[fixedpoint.Price]*PriceLevel),
	}
}

func (s *side) less(a, b fixedpoint.Price) bool {
	if s.descending {
		return a > b
	}
	return a < b
}

func (s *side) searchIndex(p fixedpoint.Price) int {
	return sort.Search(len(s.order), func(i int) bool {
		return !s.less(s.order[i], p) // first index where order[i] is not strictly before p
	})
}

// set inserts or overwrites the level at p. A zero quantity removes it.
func (s *side) set(level PriceLevel) {
	if level.Quantity <= 0 {
		s.remove(level.Price)
		return
	}
	if _, exists := s.levels[level.Price]; !exists {
		idx := s.searchIndex(level.Price)
		s.order = append(s.order, 0)
		copy(s.order[idx+1:], s.order[idx:])
		s.order[idx] = level.Price
	}
	lv := level
	s.levels[level.Price] = &lv
	s.dirty = true
}

func (s *side) remove(p fixedpoint.Price) {
	if _, exists := s.levels[p]; !exists {
		return
	}
	delete(s.levels, p)
	idx := s.searchIndex(p)
	if idx < len(s.order) && s.order[idx] == p {
		s.order = append(s.order[:idx], s.order[idx+1:]...)
	}
	s.dirty = true
}

func (s *side) get(p fixedpoint.Price) (*PriceLevel, bool) {
	lv, ok := s.levels[p]
	return lv, ok
}

func (s *side) best() (*PriceLevel, bool) {
	if len(s.order) == 0 {
		return nil, false
	}
	return s.levels[s.order[0]], true
}

func (s *side) len() int {
	return len(s.order)
}

// refreshCache rebuilds the truncated depth cache in sorted order.
func (s *side) refreshCache() {
	n := len(s.order)
	if n > MaxDepth {
		n = MaxDepth
	}
	s.cache = make([]PriceLevel, n)
	for i := 0; i < n; i++ {
		s.cache[i] = *s.levels[s.order[i]]
	}
	s.dirty = false
}

// depth returns up to n levels (capped at MaxDepth), refreshing the
// cache first if it is stale.
func (s *side) depth(n int) []PriceLevel {
	if s.dirty {
		s.refreshCache()
	}
	if n > len(s.cache) {
		n = len(s.cache)
	}
	out := make([]PriceLevel, n)
	copy(out, s.cache[:n])
	return out
}

// walk invokes fn for each level in priority order until fn returns
// false or levels are exhausted. It always reflects live state, even
// when the depth cache is stale.
func (s *side) walk(fn func(PriceLevel) bool) {
	for _, p := range s.order {
		if !fn(*s.levels[p]) {
			return
		}
	}
}
