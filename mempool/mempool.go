// mempool/mempool.go
package mempool

import (
	"sync"

	"medchain_go/blockchain"
)

// Mempool holds pending items in submission order
type Mempool[T blockchain.MempoolItem] struct {
	items []T
	index map[string]struct{}
	mutex sync.RWMutex
}

// NewMempool creates a new mempool
func NewMempool[T blockchain.MempoolItem]() *Mempool[T] {
	return &Mempool[T]{
		index: make(map[string]struct{}),
	}
}

// AddItem appends an item to the mempool. It returns false when an item with the
// same ID is already pending.
func (mp *Mempool[T]) AddItem(item T) bool {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()

	if _, exists := mp.index[item.GetID()]; exists {
		return false
	}
	mp.items = append(mp.items, item)
	mp.index[item.GetID()] = struct{}{}
	return true
}

// Contains reports whether an item with the given ID is pending
func (mp *Mempool[T]) Contains(id string) bool {
	mp.mutex.RLock()
	defer mp.mutex.RUnlock()

	_, exists := mp.index[id]
	return exists
}

// RemoveFirst removes the n oldest items, typically the ones just sealed into a block.
func (mp *Mempool[T]) RemoveFirst(n int) {
	mp.mutex.Lock()
	defer mp.mutex.Unlock()

	if n > len(mp.items) {
		n = len(mp.items)
	}
	for _, item := range mp.items[:n] {
		delete(mp.index, item.GetID())
	}
	rest := make([]T, len(mp.items)-n)
	copy(rest, mp.items[n:])
	mp.items = rest
}

// GetPendingItems returns the pending items in submission order
func (mp *Mempool[T]) GetPendingItems() []T {
	mp.mutex.RLock()
	defer mp.mutex.RUnlock()

	result := make([]T, len(mp.items))
	copy(result, mp.items)
	return result
}

// GetSize returns the number of items in the mempool
func (mp *Mempool[T]) GetSize() int {
	mp.mutex.RLock()
	defer mp.mutex.RUnlock()

	return len(mp.items)
}
