// Package cart holds the in-memory cart state rendered by the UI.
package cart

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
)

// Listener is notified with a fresh snapshot after every change.
type Listener func(items []domain.CartLineItem)

// Container is the cart keyed by variant id. All methods are synchronous
// and safe for concurrent use. No entry is ever stored with quantity <= 0.
type Container struct {
	mu        sync.RWMutex
	items     map[domain.FlexibleID]domain.CartLineItem
	gen       uint64
	nextSub   int
	listeners map[int]Listener
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		items:     make(map[domain.FlexibleID]domain.CartLineItem),
		listeners: make(map[int]Listener),
	}
}

// AddItem inserts or overwrites the entry at item.ID. A quantity below 1
// is stored as 1.
func (c *Container) AddItem(item domain.CartLineItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	c.mu.Lock()
	c.items[item.ID] = item
	c.commitLocked()
}

// UpdateQuantity sets the quantity of an existing entry. It is a no-op for
// unknown ids, and a quantity <= 0 removes the entry.
func (c *Container) UpdateQuantity(id domain.FlexibleID, quantity int) {
	c.mu.Lock()
	item, ok := c.items[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	if quantity <= 0 {
		delete(c.items, id)
	} else {
		item.Quantity = quantity
		c.items[id] = item
	}
	c.commitLocked()
}

// RemoveItem deletes the entry at id, if any.
func (c *Container) RemoveItem(id domain.FlexibleID) {
	c.mu.Lock()
	if _, ok := c.items[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.items, id)
	c.commitLocked()
}

// Clear empties the container.
func (c *Container) Clear() {
	c.mu.Lock()
	c.items = make(map[domain.FlexibleID]domain.CartLineItem)
	c.commitLocked()
}

// ReplaceAll rebuilds the container from items, discarding prior state.
// Quantities below 1 are stored as 1, as in AddItem.
func (c *Container) ReplaceAll(items []domain.CartLineItem) {
	c.mu.Lock()
	c.replaceLocked(items)
	c.commitLocked()
}

// ReplaceAllIfCurrent replaces the contents only when no change has been
// committed since gen was read. It reports whether the replace happened.
func (c *Container) ReplaceAllIfCurrent(items []domain.CartLineItem, gen uint64) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	c.replaceLocked(items)
	c.commitLocked()
	return true
}

func (c *Container) replaceLocked(items []domain.CartLineItem) {
	next := make(map[domain.FlexibleID]domain.CartLineItem, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		next[item.ID] = item
	}
	c.items = next
}

// commitLocked bumps the generation, releases the lock and notifies
// listeners outside of it.
func (c *Container) commitLocked() {
	c.gen++
	snapshot := c.sortedLocked()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

// Generation returns a counter that changes on every committed change.
func (c *Container) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Count returns the number of entries with a non-empty id.
func (c *Container) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for id := range c.items {
		if id != "" {
			n++
		}
	}
	return n
}

// Items returns the render list sorted by id, without empty ids.
func (c *Container) Items() []domain.CartLineItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedLocked()
}

func (c *Container) sortedLocked() []domain.CartLineItem {
	out := make([]domain.CartLineItem, 0, len(c.items))
	for id, item := range c.items {
		if id == "" {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the entry at id.
func (c *Container) Get(id domain.FlexibleID) (domain.CartLineItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// ContainsProduct reports whether any variant of productID is in the cart.
func (c *Container) ContainsProduct(productID domain.FlexibleID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, item := range c.items {
		if id != "" && item.ProductID == productID {
			return true
		}
	}
	return false
}

// Total returns the sum of price * quantity over all entries.
func (c *Container) Total() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := decimal.Zero
	for id, item := range c.items {
		if id == "" {
			continue
		}
		total = total.Add(item.Subtotal())
	}
	return total
}

// View returns a consistent snapshot of items, count and total.
func (c *Container) View() domain.CartView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := c.sortedLocked()
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return domain.CartView{Items: items, Count: len(items), Total: total}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (c *Container) Subscribe(fn Listener) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}
