package monitor

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// cacheEntry - последнее наблюдение цены токена
type cacheEntry struct {
	price      decimal.Decimal
	observedAt time.Time
}

// PriceCache хранит последние цены токенов и отдает их без похода в сеть,
// пока не истекло окно свежести. Записи не вытесняются и не удаляются:
// их ровно столько, сколько различных токенов в активных алертах, протухшая
// запись остается читаемой как запасной вариант при недоступном API.
type PriceCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]cacheEntry

	now func() time.Time // подменяется в тестах
}

func NewPriceCache(ttl time.Duration) *PriceCache {
	return &PriceCache{
		ttl: ttl,
		m:   make(map[string]cacheEntry),
		now: time.Now,
	}
}

// Get возвращает цену и признак свежести. Свежей считается цена,
// наблюденная меньше чем ttl назад.
func (c *PriceCache) Get(tokenID string) (decimal.Decimal, bool) {
	c.mu.RLock()
	e, ok := c.m[tokenID]
	c.mu.RUnlock()

	if !ok {
		return decimal.Zero, false
	}
	return e.price, c.now().Sub(e.observedAt) < c.ttl
}

// GetStale возвращает последнюю известную цену, игнорируя свежесть.
// false - токен ни разу не наблюдался.
func (c *PriceCache) GetStale(tokenID string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.m[tokenID]
	return e.price, ok
}

// Put перезаписывает цену токена текущим моментом наблюдения
func (c *PriceCache) Put(tokenID string, price decimal.Decimal) {
	c.mu.Lock()
	c.m[tokenID] = cacheEntry{price: price, observedAt: c.now()}
	c.mu.Unlock()
}

// Len - количество токенов в кэше, для интроспекции
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
