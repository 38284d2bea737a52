package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/storefront/internal/analytics"
	"finitefield.org/storefront/internal/storage"
)

// Store owns one visitor's cart for the duration of a request. It is not safe
// for concurrent use.
type Store struct {
	storage    storage.Store
	key        string
	sink       analytics.Sink
	renderers  []Renderer
	openDrawer func()
	logger     *zap.Logger

	items []Item
}

// Option configures a Store.
type Option func(*Store)

// WithSink routes analytics events to sink.
func WithSink(sink analytics.Sink) Option {
	return func(s *Store) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithRenderers registers the renderers invoked by RenderAll.
func WithRenderers(renderers ...Renderer) Option {
	return func(s *Store) {
		for _, r := range renderers {
			if r != nil {
				s.renderers = append(s.renderers, r)
			}
		}
	}
}

// WithDrawerOpener sets the callback used to reveal the drawer after an add.
func WithDrawerOpener(open func()) Option {
	return func(s *Store) {
		s.openDrawer = open
	}
}

// WithLogger sets the logger used for load and persist failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if k := strings.TrimSpace(key); k != "" {
			s.key = k
		}
	}
}

// Open loads the cart persisted in store. Missing or unreadable data yields an
// empty cart; the failure is logged, never returned.
func Open(ctx context.Context, store storage.Store, opts ...Option) *Store {
	s := &Store{
		storage: store,
		key:     StorageKey,
		sink:    analytics.Discard,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("cart")
	s.items = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []Item {
	raw, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("read cart", zap.String("key", s.key), zap.Error(err))
		}
		return nil
	}

	var stored []Item
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn("decode cart", zap.String("key", s.key), zap.Error(err))
		if err := s.storage.Delete(ctx, s.key); err != nil {
			s.logger.Warn("drop malformed cart", zap.String("key", s.key), zap.Error(err))
		}
		return nil
	}

	items := make([]Item, 0, len(stored))
	index := make(map[string]int, len(stored))
	for _, it := range stored {
		if !ValidID(it.ID) || it.Quantity <= 0 {
			continue
		}
		it.Quantity = clampQuantity(it.Quantity, 1)
		if pos, ok := index[it.ID]; ok {
			items[pos].Quantity = clampQuantity(items[pos].Quantity+it.Quantity, 1)
			continue
		}
		index[it.ID] = len(items)
		items = append(items, it)
	}
	return items
}

func (s *Store) find(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Add puts quantity units of product in the cart. A quantity of zero or less
// means none was supplied and adds one unit. A line never exceeds MaxQuantity.
func (s *Store) Add(ctx context.Context, product Product, quantity int) error {
	quantity = clampQuantity(quantity, 1)

	if i := s.find(product.ID); i >= 0 {
		s.items[i].Quantity = clampQuantity(s.items[i].Quantity+quantity, 1)
	} else {
		s.items = append(s.items, Item{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Image:    product.Image,
			Quantity: quantity,
		})
	}

	err := s.Persist(ctx)
	s.RenderAll()
	s.sink.Push(ctx, analytics.AddToCart(analytics.Item{
		ID:       product.ID,
		Name:     product.Name,
		Price:    product.Price,
		Quantity: quantity,
	}))
	if s.openDrawer != nil {
		s.openDrawer()
	}
	return err
}

// UpdateQuantityByDelta adjusts the quantity of id by delta, removing the line
// once it reaches zero. Unknown ids are ignored.
func (s *Store) UpdateQuantityByDelta(ctx context.Context, id string, delta int) error {
	i := s.find(id)
	if i < 0 {
		return nil
	}
	// both operands stay within ±MaxQuantity, so the sum cannot overflow
	next := s.items[i].Quantity + clampQuantity(delta, -MaxQuantity)
	if next <= 0 {
		return s.Remove(ctx, id)
	}
	s.items[i].Quantity = clampQuantity(next, 1)
	err := s.Persist(ctx)
	s.RenderAll()
	return err
}

// SetQuantity replaces the quantity of id, capped at MaxQuantity. Non-positive
// values remove the line.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) error {
	i := s.find(id)
	if i < 0 {
		return nil
	}
	if quantity <= 0 {
		return s.Remove(ctx, id)
	}
	s.items[i].Quantity = clampQuantity(quantity, 1)
	err := s.Persist(ctx)
	s.RenderAll()
	return err
}

// Remove deletes every line with id. The cart is persisted and re-rendered even
// when nothing matched.
func (s *Store) Remove(ctx context.Context, id string) error {
	var (
		removed Item
		found   bool
	)
	kept := s.items[:0]
	for _, it := range s.items {
		if it.ID == id {
			if !found {
				removed, found = it, true
			}
			continue
		}
		kept = append(kept, it)
	}
	s.items = kept

	if found {
		s.sink.Push(ctx, analytics.RemoveFromCart(removed.AnalyticsItem()))
	}
	err := s.Persist(ctx)
	s.RenderAll()
	return err
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.items = nil
	err := s.Persist(ctx)
	s.RenderAll()
	return err
}

// Track pushes event to the store's analytics sink.
func (s *Store) Track(ctx context.Context, event analytics.Event) {
	s.sink.Push(ctx, event)
}

// Total returns the sum of price × quantity over all lines.
func (s *Store) Total() float64 {
	var total float64
	for _, it := range s.items {
		total += it.LineTotal()
	}
	return total
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	return len(s.items)
}

// Snapshot captures the current lines and total.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Items: s.Items(), Total: s.Total()}
}

// Persist writes the cart under its key, replacing the previous value.
func (s *Store) Persist(ctx context.Context) error {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Put(ctx, s.key, raw); err != nil {
		s.logger.Error("persist cart", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// RenderAll hands the current snapshot to every registered renderer.
func (s *Store) RenderAll() {
	if len(s.renderers) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, r := range s.renderers {
		r.Render(snap)
	}
}
