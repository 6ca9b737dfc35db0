package common

import (
	"context"
	"sync"
)

// ItemLocker scopes a read-check-write sequence to a single item. The
// returned unlock func must be called exactly once; extra calls are no-ops.
type ItemLocker interface {
	Lock(ctx context.Context, itemID uint) (func(), error)
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker is an in-process ItemLocker. Slots are dropped once no
// goroutine holds or waits on them.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[uint]*lockSlot
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[uint]*lockSlot)}
}

func (l *MemoryLocker) Lock(ctx context.Context, itemID uint) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[itemID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[itemID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(itemID, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(itemID, slot)
		})
	}, nil
}

func (l *MemoryLocker) release(itemID uint, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, itemID)
	}
}

func (l *MemoryLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
