package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	ierrors "github.com/abgdnv/inventory/internal/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultKey is the storage key the product list is persisted under.
	DefaultKey = "products"
	// DefaultPageSize is used when no page size is configured.
	DefaultPageSize = 5

	maxIDAttempts = 10
)

// PageSizes lists the allowed page sizes.
var PageSizes = []int{3, 5, 10, 20}

// KeyValue is the persistence the store needs.
// Get returns ErrKeyNotFound when nothing is stored under the key.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// View is the visible slice of the list for the current page.
type View struct {
	Items      []Product `json:"items"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
	Total      int       `json:"total"`
}

// Store keeps the product list and the page state in memory and
// writes the whole list back to storage after every change.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	storage  KeyValue
	key      string
	products []Product
	page     int
	pageSize int
	seed     []Product
	newID    func() string
	logger   *slog.Logger
	metrics  *storeMetrics
	tracer   trace.Tracer
}

// Option configures a Store.
type Option func(*Store)

// WithKey sets the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithPageSize sets the initial page size. Values outside PageSizes are ignored.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if slices.Contains(PageSizes, n) {
			s.pageSize = n
		}
	}
}

// WithSeed sets the products used when storage holds nothing under the key.
func WithSeed(seed []Product) Option {
	return func(s *Store) {
		s.seed = slices.Clone(seed)
	}
}

// WithIDGenerator replaces the id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore creates an empty Store backed by storage. Call Load to read persisted products.
func NewStore(storage KeyValue, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		storage:  storage,
		key:      DefaultKey,
		page:     1,
		pageSize: DefaultPageSize,
		newID:    uuid.NewString,
		logger:   logger.With("component", "catalog"),
		tracer:   otel.Tracer("inventory-catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newStoreMetrics(s)
	return s
}

// Load replaces the list with what storage holds under the key.
// A missing key falls back to the seed products. Data that cannot be decoded
// yields an empty list. Only storage errors are returned.
func (s *Store) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "catalog.Load", trace.WithAttributes(attribute.String("key", s.key)))
	defer span.End()

	data, err := s.storage.Get(ctx, s.key)
	seeded := false
	var products []Product
	switch {
	case errors.Is(err, ierrors.ErrKeyNotFound):
		products = s.seedProducts()
		seeded = len(products) > 0
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to load products: %w", err)
	default:
		products = s.decode(ctx, data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
	s.page = 1
	s.logger.InfoContext(ctx, "Products loaded", "count", len(products), "seeded", seeded)
	if seeded {
		s.save(ctx)
	}
	return nil
}

// decode parses the persisted list. Entries that fail to decode or repeat an id are dropped.
func (s *Store) decode(ctx context.Context, data string) []Product {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		s.logger.WarnContext(ctx, "Stored products are malformed, starting with an empty list", "key", s.key, "error", err)
		return []Product{}
	}
	products := make([]Product, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, item := range raw {
		var p Product
		if err := json.Unmarshal(item, &p); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed product", "index", i, "error", err)
			continue
		}
		if p.ID == "" {
			p.ID = s.uniqueID(seen)
		}
		if _, dup := seen[p.ID]; dup {
			s.logger.WarnContext(ctx, "Skipping product with duplicate id", "ID", p.ID)
			continue
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
	}
	return products
}

func (s *Store) seedProducts() []Product {
	products := make([]Product, 0, len(s.seed))
	seen := make(map[string]struct{}, len(s.seed))
	for _, p := range s.seed {
		p.Name = strings.TrimSpace(p.Name)
		if _, dup := seen[p.ID]; p.ID == "" || dup {
			p.ID = s.uniqueID(seen)
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
	}
	return products
}

// Add validates the input and prepends a new product, moving to the first page.
func (s *Store) Add(ctx context.Context, name, rawPrice string, inStock bool) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, &ierrors.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	price, err := ParsePrice(rawPrice)
	if err != nil {
		return Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.products))
	for _, p := range s.products {
		seen[p.ID] = struct{}{}
	}
	product := Product{
		ID:      s.uniqueID(seen),
		Name:    name,
		Price:   price,
		InStock: inStock,
	}
	s.products = slices.Insert(s.products, 0, product)
	s.page = 1
	s.metrics.added.Add(ctx, 1)
	s.save(ctx)
	return product, nil
}

// ToggleStock flips the stock flag of the product with the given id. Unknown ids are ignored.
func (s *Store) ToggleStock(ctx context.Context, id string) {
	s.update(ctx, id, func(p *Product) {
		p.InStock = !p.InStock
		s.metrics.stockToggled.Add(ctx, 1)
	})
}

// ToggleMark flips the marked flag of the product with the given id. Unknown ids are ignored.
func (s *Store) ToggleMark(ctx context.Context, id string) {
	s.update(ctx, id, func(p *Product) {
		p.Marked = !p.Marked
	})
}

func (s *Store) update(ctx context.Context, id string, fn func(p *Product)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		s.logger.DebugContext(ctx, "Product not found, nothing to update", "ID", id)
		return
	}
	fn(&s.products[i])
	s.save(ctx)
}

// Delete removes the product with the given id and keeps the page within range.
// Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		s.logger.DebugContext(ctx, "Product not found, nothing to delete", "ID", id)
		return
	}
	s.products = slices.Delete(s.products, i, i+1)
	s.page = min(s.page, s.totalPages())
	s.metrics.deleted.Add(ctx, 1)
	s.save(ctx)
}

// SetPageSize changes the page size and moves to the first page.
// It returns ErrInvalidPageSize for values outside PageSizes.
func (s *Store) SetPageSize(n int) error {
	if !slices.Contains(PageSizes, n) {
		return fmt.Errorf("%w: %d, allowed %v", ierrors.ErrInvalidPageSize, n, PageSizes)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
	s.page = 1
	return nil
}

// SetPage moves to page n, clamped to [1, TotalPages].
func (s *Store) SetPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = max(1, min(n, s.totalPages()))
}

// View returns the products on the current page.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := min((s.page-1)*s.pageSize, len(s.products))
	end := min(start+s.pageSize, len(s.products))
	return View{
		Items:      slices.Clone(s.products[start:end]),
		Page:       s.page,
		PageSize:   s.pageSize,
		TotalPages: s.totalPages(),
		Total:      len(s.products),
	}
}

// Close releases the metric callback observing this store. The store stays usable.
func (s *Store) Close() error {
	return s.metrics.unregister()
}

// Products returns a copy of the whole list, newest first.
func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products)
}

func (s *Store) totalPages() int {
	return max(1, (len(s.products)+s.pageSize-1)/s.pageSize)
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.products, func(p Product) bool { return p.ID == id })
}

// uniqueID generates ids until one is not in seen. After maxIDAttempts
// rejected ids from the configured generator it switches to random uuids.
func (s *Store) uniqueID(seen map[string]struct{}) string {
	next := s.newID
	for attempt := 1; ; attempt++ {
		if attempt > maxIDAttempts {
			next = uuid.NewString
		}
		id := next()
		if _, taken := seen[id]; !taken && id != "" {
			return id
		}
	}
}

// save writes the full list under the key. Callers hold the write lock.
// Failures are logged and counted, the in-memory state stays authoritative.
func (s *Store) save(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, "catalog.save", trace.WithAttributes(attribute.Int("count", len(s.products))))
	defer span.End()

	data, err := json.Marshal(s.nonNil())
	if err != nil {
		s.persistFailed(ctx, span, err)
		return
	}
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		s.persistFailed(ctx, span, err)
	}
}

func (s *Store) persistFailed(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.persistFailures.Add(ctx, 1)
	s.logger.ErrorContext(ctx, "Failed to persist products", "key", s.key, "error", err)
}

func (s *Store) nonNil() []Product {
	if s.products == nil {
		return []Product{}
	}
	return s.products
}
