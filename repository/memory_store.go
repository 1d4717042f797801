package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/models"
)

// MemoryStore implements Store in process memory. Transactions are
// serialized and work on a copy of the data that replaces the committed
// state only when fn succeeds, which gives the same all-or-nothing
// behaviour as the database. Used for local runs (DB_DRIVER=memory) and
// tests.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *memoryData

	// inTx is set on the copy handed to a transaction callback; locking is
	// then owned by the enclosing WithinTransaction.
	inTx bool
	now  func() time.Time
}

type memoryData struct {
	items  map[uuid.UUID]models.Item
	carts  map[uuid.UUID]models.Cart
	lines  map[uuid.UUID]models.CartLineItem
	orders map[uuid.UUID]models.Order
	// seq preserves insertion order for line items and carts
	seq     int64
	lineSeq map[uuid.UUID]int64
	cartSeq map[uuid.UUID]int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memoryData{
			items:   make(map[uuid.UUID]models.Item),
			carts:   make(map[uuid.UUID]models.Cart),
			lines:   make(map[uuid.UUID]models.CartLineItem),
			orders:  make(map[uuid.UUID]models.Order),
			lineSeq: make(map[uuid.UUID]int64),
			cartSeq: make(map[uuid.UUID]int64),
		},
		now: time.Now,
	}
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		items:   make(map[uuid.UUID]models.Item, len(d.items)),
		carts:   make(map[uuid.UUID]models.Cart, len(d.carts)),
		lines:   make(map[uuid.UUID]models.CartLineItem, len(d.lines)),
		orders:  make(map[uuid.UUID]models.Order, len(d.orders)),
		seq:     d.seq,
		lineSeq: make(map[uuid.UUID]int64, len(d.lineSeq)),
		cartSeq: make(map[uuid.UUID]int64, len(d.cartSeq)),
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.carts {
		c.carts[k] = v
	}
	for k, v := range d.lines {
		c.lines[k] = v
	}
	for k, v := range d.orders {
		v.LineItems = append([]models.OrderLineItem(nil), v.LineItems...)
		c.orders[k] = v
	}
	for k, v := range d.lineSeq {
		c.lineSeq[k] = v
	}
	for k, v := range d.cartSeq {
		c.cartSeq[k] = v
	}
	return c
}

// acquire takes the locks a single operation needs and returns the release
// func. Writes outside a transaction wait for running transactions.
func (s *MemoryStore) acquire(write bool) func() {
	if s.inTx {
		return func() {}
	}
	if write {
		s.txMu.Lock()
		s.mu.Lock()
		return func() {
			s.mu.Unlock()
			s.txMu.Unlock()
		}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	working := s.data.clone()
	s.mu.RUnlock()

	tx := &MemoryStore{data: working, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = working
	s.mu.Unlock()
	return nil
}

// --- items ---

func (s *MemoryStore) ListItems(_ context.Context, filter ItemFilter) ([]models.Item, error) {
	defer s.acquire(false)()

	items := make([]models.Item, 0, len(s.data.items))
	for _, item := range s.data.items {
		if filter.DiscountOnly && !item.IsDiscount {
			continue
		}
		if !filter.AddedSince.IsZero() && item.CreatedAt.Before(filter.AddedSince) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return bytes.Compare(items[i].ID[:], items[j].ID[:]) < 0
	})
	return items, nil
}

func (s *MemoryStore) GetItem(_ context.Context, id uuid.UUID) (*models.Item, error) {
	defer s.acquire(false)()

	item, ok := s.data.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (s *MemoryStore) LockItems(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	defer s.acquire(false)()

	result := make(map[uuid.UUID]*models.Item, len(ids))
	for _, id := range ids {
		if item, ok := s.data.items[id]; ok {
			result[id] = &item
		}
	}
	return result, nil
}

func (s *MemoryStore) DecrementStock(_ context.Context, id uuid.UUID, qty int) error {
	defer s.acquire(true)()

	item, ok := s.data.items[id]
	if !ok || item.Quantity < qty {
		return ErrInsufficientStock
	}
	item.Quantity -= qty
	s.data.items[id] = item
	return nil
}

func (s *MemoryStore) CreateItem(_ context.Context, item *models.Item) error {
	defer s.acquire(true)()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.data.items[item.ID] = *item
	return nil
}

func (s *MemoryStore) SetStock(_ context.Context, id uuid.UUID, qty int) (*models.Item, error) {
	defer s.acquire(true)()

	item, ok := s.data.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	item.Quantity = qty
	s.data.items[id] = item
	return &item, nil
}

// --- carts ---

func (s *MemoryStore) FindCart(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	defer s.acquire(false)()
	return s.data.findCart(userID)
}

func (s *MemoryStore) LockCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.FindCart(ctx, userID)
}

func (s *MemoryStore) EnsureCart(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	defer s.acquire(true)()

	if cart, err := s.data.findCart(userID); err == nil {
		return cart, nil
	}
	now := s.now()
	cart := models.Cart{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	s.data.insertCart(cart)
	return &cart, nil
}

// findCart returns the oldest cart of the user.
func (d *memoryData) findCart(userID uuid.UUID) (*models.Cart, error) {
	var found *models.Cart
	for _, cart := range d.carts {
		if cart.UserID != userID {
			continue
		}
		if found == nil || d.cartSeq[cart.ID] < d.cartSeq[found.ID] {
			c := cart
			found = &c
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (d *memoryData) insertCart(cart models.Cart) {
	d.seq++
	d.carts[cart.ID] = cart
	d.cartSeq[cart.ID] = d.seq
}

func (d *memoryData) deleteCart(cartID uuid.UUID) {
	for id, line := range d.lines {
		if line.CartID == cartID {
			delete(d.lines, id)
			delete(d.lineSeq, id)
		}
	}
	delete(d.carts, cartID)
	delete(d.cartSeq, cartID)
}

func (s *MemoryStore) DeleteDuplicateCarts(_ context.Context, userID, keepID uuid.UUID) (int64, error) {
	defer s.acquire(true)()

	var deleted int64
	for id, cart := range s.data.carts {
		if cart.UserID == userID && id != keepID {
			s.data.deleteCart(id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) ListLineItems(_ context.Context, cartID uuid.UUID) ([]models.CartLineItem, error) {
	defer s.acquire(false)()

	lines := make([]models.CartLineItem, 0)
	for _, line := range s.data.lines {
		if line.CartID != cartID {
			continue
		}
		line.Item = s.data.items[line.ItemID]
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		return s.data.lineSeq[lines[i].ID] < s.data.lineSeq[lines[j].ID]
	})
	return lines, nil
}

func (s *MemoryStore) FindLineItem(_ context.Context, cartID, itemID uuid.UUID) (*models.CartLineItem, error) {
	defer s.acquire(false)()

	for _, line := range s.data.lines {
		if line.CartID == cartID && line.ItemID == itemID {
			return &line, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateLineItem(_ context.Context, line *models.CartLineItem) error {
	defer s.acquire(true)()

	if _, ok := s.data.carts[line.CartID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.data.items[line.ItemID]; !ok {
		return ErrNotFound
	}
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	now := s.now()
	line.CreatedAt, line.UpdatedAt = now, now

	stored := *line
	stored.Item = models.Item{}
	s.data.seq++
	s.data.lines[line.ID] = stored
	s.data.lineSeq[line.ID] = s.data.seq
	return nil
}

func (s *MemoryStore) UpdateLineItemQuantity(_ context.Context, id uuid.UUID, qty int) error {
	defer s.acquire(true)()

	line, ok := s.data.lines[id]
	if !ok {
		return ErrNotFound
	}
	line.Quantity = qty
	line.UpdatedAt = s.now()
	s.data.lines[id] = line
	return nil
}

func (s *MemoryStore) DeleteLineItem(_ context.Context, id uuid.UUID) error {
	defer s.acquire(true)()

	if _, ok := s.data.lines[id]; !ok {
		return ErrNotFound
	}
	delete(s.data.lines, id)
	delete(s.data.lineSeq, id)
	return nil
}

func (s *MemoryStore) DeleteCart(_ context.Context, cartID uuid.UUID) error {
	defer s.acquire(true)()

	s.data.deleteCart(cartID)
	return nil
}

// --- orders ---

func (s *MemoryStore) CreateOrder(_ context.Context, order *models.Order) error {
	defer s.acquire(true)()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.LineItems {
		if order.LineItems[i].ID == uuid.Nil {
			order.LineItems[i].ID = uuid.New()
		}
		order.LineItems[i].OrderID = order.ID
	}

	stored := *order
	stored.LineItems = make([]models.OrderLineItem, len(order.LineItems))
	for i, line := range order.LineItems {
		line.Item = models.Item{}
		stored.LineItems[i] = line
	}
	s.data.orders[order.ID] = stored
	return nil
}

func (s *MemoryStore) ListOrders(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	defer s.acquire(false)()

	orders := make([]models.Order, 0)
	for _, order := range s.data.orders {
		if order.UserID != userID || len(order.LineItems) == 0 {
			continue
		}
		orders = append(orders, s.data.withItems(order))
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CompletedAt.After(orders[j].CompletedAt)
	})
	return orders, nil
}

func (s *MemoryStore) FindOrder(_ context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	defer s.acquire(false)()

	order, ok := s.data.orders[orderID]
	if !ok || order.UserID != userID {
		return nil, ErrNotFound
	}
	withItems := s.data.withItems(order)
	return &withItems, nil
}

func (d *memoryData) withItems(order models.Order) models.Order {
	lines := make([]models.OrderLineItem, len(order.LineItems))
	for i, line := range order.LineItems {
		line.Item = d.items[line.ItemID]
		lines[i] = line
	}
	order.LineItems = lines
	return order
}
