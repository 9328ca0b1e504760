package photoshare

import (
	"container/list"

	"golang.org/x/exp/constraints"
)

type Pair[K, V any] struct {
	Key K
	Val V
}

// LRU keeps at most Capacity entries, evicting the least recently used one.
// It is not safe for concurrent use.
type LRU[K constraints.Ordered, V any] struct {
	Capacity int
	Dict     map[K]*list.Element
	List     *list.List
	OnEvict  func(key K, val V)
}

func NewLRU[K constraints.Ordered, V any](capacity int) *LRU[K, V] {
	return &LRU[K, V]{
		Capacity: capacity,
		Dict:     make(map[K]*list.Element),
		List:     list.New(),
	}
}

func (col *LRU[K, V]) Len() int {
	return col.List.Len()
}

// Get returns the value for key and marks it most recently used.
func (col *LRU[K, V]) Get(key K) (V, bool) {
	var v V
	el, ok := col.Dict[key]
	if !ok {
		return v, false
	}
	col.List.MoveToFront(el)
	return el.Value.(Pair[K, V]).Val, true
}

// Add inserts or replaces key and evicts from the back when over capacity.
func (col *LRU[K, V]) Add(key K, value V) {
	if el, ok := col.Dict[key]; ok {
		el.Value = Pair[K, V]{key, value}
		col.List.MoveToFront(el)
		return
	}
	col.Dict[key] = col.List.PushFront(Pair[K, V]{key, value})
	for col.Capacity > 0 && col.List.Len() > col.Capacity {
		col.removeOldest()
	}
}

func (col *LRU[K, V]) removeOldest() {
	el := col.List.Back()
	if el == nil {
		return
	}
	pair := col.List.Remove(el).(Pair[K, V])
	delete(col.Dict, pair.Key)
	if col.OnEvict != nil {
		col.OnEvict(pair.Key, pair.Val)
	}
}
