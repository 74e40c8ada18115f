package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const BaseURL = "https://api.coingecko.com/api/v3"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		baseURL:    BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// --- Implementation of PriceProvider ---

// GetSimplePrice возвращает текущую цену токена в USD.
// Endpoint: /simple/price?ids=bitcoin&vs_currencies=usd
// Один вызов - один токен: батчинг по нескольким id здесь не нужен,
// кэш и бюджет запросов учитываются выше по стеку.
func (c *Client) GetSimplePrice(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(tokenID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("coingecko api error: status %d", resp.StatusCode)
	}

	var prices SimplePriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse response: %w", err)
	}

	// Неизвестный id CoinGecko молча отдает пустым объектом
	quote, ok := prices[tokenID]
	if !ok || quote.USD.IsZero() {
		return decimal.Zero, fmt.Errorf("price not found for %s", tokenID)
	}

	return quote.USD, nil
}
