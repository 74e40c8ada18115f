package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceUpdateEvent - наблюдение цены из живого потока
type PriceUpdateEvent struct {
	TokenID string // id в кэше цен (канонический id CoinGecko)
	Symbol  string // символ пары на бирже, например BTCUSDT
	Price   decimal.Decimal
	Time    time.Time
	Source  string
}

// AlertEvent - сработавший алерт, отдается диспетчеру и сразу забывается
type AlertEvent struct {
	UserID        int64
	Symbol        string
	ObservedPrice decimal.Decimal
	TargetPrice   decimal.Decimal
	Condition     AlertCondition
}
