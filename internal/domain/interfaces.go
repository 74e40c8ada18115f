package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AlertRepository - хранилище подписок в БД (источник истины)
type AlertRepository interface {
	// Сохранить новый алерт
	CreateAlert(ctx context.Context, alert *Alert) error

	// Активные алерты всех пользователей в порядке создания
	GetActiveAlerts(ctx context.Context) ([]Alert, error)

	// Активные алерты конкретного пользователя
	GetUserAlerts(ctx context.Context, userID int64) ([]Alert, error)

	// Удалить алерт пользователя. false - не найден или принадлежит другому
	DeleteAlert(ctx context.Context, id int64, userID int64) (bool, error)
}

// PriceProvider - внешний источник цен (CoinGecko)
type PriceProvider interface {
	// Текущая цена токена в USD по каноническому id (bitcoin, ethereum)
	GetSimplePrice(ctx context.Context, tokenID string) (decimal.Decimal, error)
}

// Notifier - доставка сообщений пользователю (Telegram)
type Notifier interface {
	NotifyUser(userID int64, message string) error
}

// MirrorStore - внешнее резервное зеркало подписок (GitHub Gist).
// Best-effort: ошибки зеркала не должны блокировать основную запись в БД.
type MirrorStore interface {
	FetchTokens(ctx context.Context) ([]MirrorToken, error)
	AppendToken(ctx context.Context, token MirrorToken) error
}

// MarketStreamer - живой поток цен, прогревающий кэш (опционален)
type MarketStreamer interface {
	// Subscribe запускает поток и возвращает канал событий
	Subscribe() (<-chan PriceUpdateEvent, error)

	// EnsureSubscribed добавляет подписки "на лету": тикер -> id кэша
	EnsureSubscribed(tokens map[string]string) error
}
