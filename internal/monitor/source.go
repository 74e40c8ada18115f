package monitor

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/minhdn/price-alert-bot/internal/domain"
)

// PriceSource достает текущую цену токена, уважая кэш и бюджет запросов
type PriceSource struct {
	provider domain.PriceProvider
	cache    *PriceCache
	limiter  *RateLimiter
	logger   *slog.Logger
}

func NewPriceSource(
	provider domain.PriceProvider,
	cache *PriceCache,
	limiter *RateLimiter,
	logger *slog.Logger,
) *PriceSource {
	return &PriceSource{
		provider: provider,
		cache:    cache,
		limiter:  limiter,
		logger:   logger,
	}
}

// FetchPrice возвращает цену токена, false - цены нет.
// Порядок: свежий кэш -> бюджет -> сеть -> при неудаче протухший кэш.
// Исчерпанный бюджет и упавший запрос снаружи неразличимы: и то и другое
// деградирует до последней известной цены либо до "цены нет". Никаких
// ожиданий и повторов - пропущенный токен дождется следующего цикла.
func (s *PriceSource) FetchPrice(ctx context.Context, tokenID string) (decimal.Decimal, bool) {
	if price, fresh := s.cache.Get(tokenID); fresh {
		return price, true
	}

	if !s.limiter.TryAcquire() {
		s.logger.Warn("API budget exhausted, falling back to cache",
			slog.String("token", tokenID))
		return s.cache.GetStale(tokenID)
	}

	price, err := s.provider.GetSimplePrice(ctx, tokenID)
	if err != nil {
		s.logger.Warn("Price fetch failed, falling back to cache",
			slog.String("token", tokenID),
			slog.String("err", err.Error()))
		return s.cache.GetStale(tokenID)
	}

	s.cache.Put(tokenID, price)
	return price, true
}
