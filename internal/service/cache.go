// CacheService: LRU-кэш записей файлов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/filecatalog/internal/domain/model"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fc_cache_hits_total",
		Help: "Общее количество попаданий в кэш записей файлов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fc_cache_misses_total",
		Help: "Общее количество промахов кэша записей файлов.",
	})
)

// CacheService: кэш записей файлов по ID. Создаётся один раз в main
// и передаётся в FileService. У каждого экземпляра сервиса свой кэш,
// поэтому запись инвалидируется только локально.
type CacheService struct {
	cache *expirable.LRU[string, *model.FileRecord]
}

// NewCacheService создаёт кэш. maxSize: максимум записей, ttl: время жизни.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	return &CacheService{cache: expirable.NewLRU[string, *model.FileRecord](maxSize, nil, ttl)}
}

// Get возвращает копию записи из кэша.
func (c *CacheService) Get(id string) (*model.FileRecord, bool) {
	val, ok := c.cache.Get(id)
	if !ok {
		cacheMissesTotal.Inc()
		return nil, false
	}
	cacheHitsTotal.Inc()
	cp := *val
	return &cp, true
}

// Set сохраняет копию записи.
func (c *CacheService) Set(record *model.FileRecord) {
	cp := *record
	c.cache.Add(record.ID, &cp)
}

// Delete инвалидирует запись.
func (c *CacheService) Delete(id string) {
	c.cache.Remove(id)
}

// Len возвращает количество записей в кэше.
func (c *CacheService) Len() int {
	return c.cache.Len()
}
