package chainstore

import (
	"container/list"
	"sync"

	"github.com/mskd12/skip-checkpoint-chain/skipchain"
)

// lruCache keeps recently touched checkpoints decoded. Readers run
// concurrently with the writer, so the cache carries its own lock; the
// checkpoints themselves are immutable and shared.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	cache    map[uint64]*list.Element
	queue    *list.List
}

type entry struct {
	seq  uint64
	ckpt *skipchain.Checkpoint
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		cache:    make(map[uint64]*list.Element, capacity),
		queue:    list.New(),
	}
}

func (c *lruCache) get(seq uint64) (*skipchain.Checkpoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.cache[seq]
	if !ok {
		return nil, false
	}
	c.queue.MoveToFront(elem)
	return elem.Value.(*entry).ckpt, true
}

func (c *lruCache) insert(seq uint64, ckpt *skipchain.Checkpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[seq]; ok {
		elem.Value.(*entry).ckpt = ckpt
		c.queue.MoveToFront(elem)
		return
	}
	c.cache[seq] = c.queue.PushFront(&entry{seq: seq, ckpt: ckpt})
	if c.queue.Len() > c.capacity {
		last := c.queue.Back()
		if last != nil {
			c.queue.Remove(last)
			delete(c.cache, last.Value.(*entry).seq)
		}
	}
}
