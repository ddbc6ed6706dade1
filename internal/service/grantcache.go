// Пакет service — бизнес-логика Registration Gateway.
// grantcache.go — LRU-кэш прав (пользователь, коллекция) с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable: таблица прав read-only,
// поэтому короткий TTL достаточен для согласованности.
package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/stacreg/internal/domain/model"
)

// Prometheus-метрики кэша grants.
var (
	grantCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rg_grant_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш прав на коллекции.",
	})
	grantCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rg_grant_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша прав на коллекции.",
	})
)

// GrantSource — источник прав (обычно repository.GrantRepository).
type GrantSource interface {
	// GetGrant возвращает права или repository.ErrNotFound.
	GetGrant(ctx context.Context, userID int64, collection string) (*model.Grant, error)
}

// grantKey — ключ кэша.
type grantKey struct {
	userID     int64
	collection string
}

// GrantService — кэширующая прослойка над Identity/Policy Store.
// Каждый экземпляр gateway имеет собственный in-memory кэш.
type GrantService struct {
	source GrantSource
	cache  *expirable.LRU[grantKey, *model.Grant]
}

// NewGrantService создаёт кэширующий сервис прав.
// maxSize — максимальное количество записей, ttl — время жизни записи.
func NewGrantService(source GrantSource, maxSize int, ttl time.Duration) *GrantService {
	cache := expirable.NewLRU[grantKey, *model.Grant](maxSize, nil, ttl)
	return &GrantService{source: source, cache: cache}
}

// Grant возвращает права пользователя на коллекцию, используя кэш.
// Отсутствие прав (repository.ErrNotFound) не кэшируется: отказ в
// авторизации должен сниматься сразу после выдачи прав.
func (s *GrantService) Grant(ctx context.Context, userID int64, collection string) (*model.Grant, error) {
	key := grantKey{userID: userID, collection: collection}

	if g, ok := s.cache.Get(key); ok {
		grantCacheHitsTotal.Inc()
		return g, nil
	}
	grantCacheMissesTotal.Inc()

	g, err := s.source.GetGrant(ctx, userID, collection)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, g)
	return g, nil
}
