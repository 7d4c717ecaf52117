package resultcache

import (
	"container/list"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
)

const (
	DefaultTTL        = 300 * time.Second
	DefaultMaxEntries = 1000
)

// Cache memoizes calculation results keyed by the request fingerprint. A
// single mutex guards the map and the recency list; readers may observe
// stale-but-not-corrupt entries within the TTL.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	lru        *list.List // front = most recently used
	ttl        time.Duration
	maxEntries int

	hits      uint64
	misses    uint64
	evictions uint64
}

type entry struct {
	key       string
	result    model.PriceResult
	expiresAt time.Time
}

func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns the stored result, or ok=false on miss or TTL expiry. Expired
// entries are removed eagerly.
func (c *Cache) Get(key string) (model.PriceResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return model.PriceResult{}, false
	}

	ent := el.Value.(*entry)
	if time.Now().After(ent.expiresAt) {
		c.removeLocked(el)
		c.misses++
		return model.PriceResult{}, false
	}

	c.lru.MoveToFront(el)
	c.hits++
	return ent.result, true
}

// Put stores a result under the default TTL.
func (c *Cache) Put(key string, result model.PriceResult) {
	c.PutTTL(key, result, c.ttl)
}

// PutTTL stores a result with an explicit TTL. Insertion beyond the size
// bound evicts the least-recently-used entry.
func (c *Cache) PutTTL(key string, result model.PriceResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry)
		ent.result = result
		ent.expiresAt = time.Now().Add(ttl)
		c.lru.MoveToFront(el)
		return
	}

	el := c.lru.PushFront(&entry{
		key:       key,
		result:    result,
		expiresAt: time.Now().Add(ttl),
	})
	c.entries[key] = el

	for c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		c.evictions++
	}
}

// Clear removes all entries and returns how many were dropped.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries)
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	return removed
}

func (c *Cache) removeLocked(el *list.Element) {
	ent := el.Value.(*entry)
	c.lru.Remove(el)
	delete(c.entries, ent.key)
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries   int    `json:"entries"`
	MaxSize   int    `json:"max_size"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.entries),
		MaxSize:   c.maxEntries,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// BuildKey derives the deterministic request fingerprint:
// pricing|{item_code}|{quantity}|{base_price}|{total_amount}|{tax_rate}|{customer}|{branch_id}|{extra}
// The fingerprint covers every request field the stored result is derived
// from: the monetary inputs as well as the matching scope, so two requests
// that would price differently never share an entry. Empty fields are encoded
// as "none"; extra discriminators are sorted so key construction is
// order-independent.
func BuildKey(req model.PriceRequest, extra map[string]string) string {
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}

	parts := []string{
		"pricing",
		orNone(req.ItemCode),
		fmt.Sprintf("%d", qty),
		fmt.Sprintf("%.2f", req.BasePrice),
		fmt.Sprintf("%.2f", req.TotalAmount),
		fmt.Sprintf("%.2f", req.TaxRate),
		orNone(req.Customer),
		orNone(req.BranchID),
	}

	if len(extra) > 0 {
		keys := make([]string, 0, len(extra))
		for k, v := range extra {
			if v != "" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+":"+extra[k])
		}
	}

	return strings.Join(parts, "|")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
