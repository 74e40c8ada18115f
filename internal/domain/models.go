package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// --- Enums & Constants ---

type AlertCondition string

const (
	ConditionAbove AlertCondition = "ABOVE" // Цена поднялась до порога или выше
	ConditionBelow AlertCondition = "BELOW" // Цена опустилась до порога или ниже
)

// --- Entities (Сущности БД) ---

// Alert - подписка пользователя на ценовой порог.
// Движок мониторинга читает только активные алерты и никогда их не мутирует.
type Alert struct {
	ID     int64
	UserID int64 // Telegram ID получателя

	Symbol      string // Пользовательский тикер: BTC, ETH
	Condition   AlertCondition
	TargetPrice decimal.Decimal // Инвариант: > 0

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShouldFire проверяет условие срабатывания. Чистая функция, оба сравнения
// включительные: ABOVE при price >= target, BELOW при price <= target.
func (a Alert) ShouldFire(price decimal.Decimal) bool {
	switch a.Condition {
	case ConditionAbove:
		return price.GreaterThanOrEqual(a.TargetPrice)
	case ConditionBelow:
		return price.LessThanOrEqual(a.TargetPrice)
	}
	return false
}

// --- Value Objects ---

// MirrorToken - запись во внешнем зеркале (GitHub Gist).
// Формат полей зафиксирован содержимым Gist, менять нельзя.
type MirrorToken struct {
	ID         string  `json:"id"`        // CoinGecko id: bitcoin, ethereum
	Threshold  float64 `json:"threshold"` // Порог в USD
	Type       string  `json:"type"`      // "above" / "below"
	Name       string  `json:"name"`      // Тикер для отображения
	IDTelegram int64   `json:"idTelegram,omitempty"`
}
