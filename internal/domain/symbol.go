package domain

import "strings"

// tokenIDs - соответствие популярных тикеров каноническим id CoinGecko
var tokenIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"MATIC": "matic-network",
}

// ResolveTokenID переводит пользовательский тикер в id CoinGecko.
// Функция тотальная: неизвестный тикер превращается в lower-case как
// best-effort. Запрос по несуществующему id просто не вернет цену,
// и выше по стеку это выглядит как "цены нет", а не отдельная ошибка.
func ResolveTokenID(symbol string) string {
	if id, ok := tokenIDs[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// StreamPair собирает пару Binance для живого потока: BTC -> BTCUSDT
func StreamPair(symbol string) string {
	return strings.ToUpper(symbol) + "USDT"
}
