package coingecko

import "github.com/shopspring/decimal"

// SimplePriceResponse - ответ /simple/price: id токена -> валюта -> цена.
// Пример: {"bitcoin":{"usd":93000.12}}
type SimplePriceResponse map[string]struct {
	USD decimal.Decimal `json:"usd"`
}
