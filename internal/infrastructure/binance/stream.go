package binance

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/minhdn/price-alert-bot/internal/domain"
)

const (
	// Публичный поток miniTicker - достаточно цены закрытия
	StreamURL = "wss://stream.binance.com:9443/ws"

	reconnectDelay = 5 * time.Second
)

// Stream - живой поток цен с Binance, прогревающий кэш монитора.
// Необязательная оптимизация: со свежим кэшем циклы проверки почти
// не тратят бюджет запросов CoinGecko.
type Stream struct {
	url    string
	logger *slog.Logger
	conn   *websocket.Conn
	mu     sync.Mutex

	// Пара Binance -> id в кэше цен; храним для восстановления
	// подписок после реконнекта
	subs   map[string]string
	subsMu sync.RWMutex

	nextID int // id запросов протокола подписки
}

func NewStream(logger *slog.Logger) *Stream {
	return &Stream{
		url:    StreamURL,
		logger: logger.With(slog.String("component", "binance_stream")),
		subs:   make(map[string]string),
	}
}

// Subscribe запускает поток и возвращает канал наблюдений цены
func (s *Stream) Subscribe() (<-chan domain.PriceUpdateEvent, error) {
	out := make(chan domain.PriceUpdateEvent, 100)
	go s.maintainConnection(out)
	return out, nil
}

// EnsureSubscribed добавляет подписки "на лету" без разрыва соединения:
// тикер -> id кэша. Уже известные пары пропускаются.
func (s *Stream) EnsureSubscribed(tokens map[string]string) error {
	var added []string

	s.subsMu.Lock()
	for symbol, tokenID := range tokens {
		pair := domain.StreamPair(symbol)
		if _, ok := s.subs[pair]; !ok {
			s.subs[pair] = tokenID
			added = append(added, pair)
		}
	}
	s.subsMu.Unlock()

	if len(added) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendSubscribeLocked(added)
}

func (s *Stream) maintainConnection(out chan<- domain.PriceUpdateEvent) {
	for {
		s.subsMu.RLock()
		pairs := make([]string, 0, len(s.subs))
		for p := range s.subs {
			pairs = append(pairs, p)
		}
		s.subsMu.RUnlock()

		if err := s.connectAndListen(pairs, out); err != nil {
			s.logger.Error("Connection lost or failed", slog.String("err", err.Error()))
		}

		s.logger.Info("Reconnecting in 5 seconds...")
		time.Sleep(reconnectDelay)
	}
}

func (s *Stream) connectAndListen(pairs []string, out chan<- domain.PriceUpdateEvent) error {
	s.logger.Info("Connecting to Binance stream...", slog.String("url", s.url))

	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}

	// Восстанавливаем все накопленные подписки новой сессией.
	// Ping от сервера gorilla отбивает pong-ом сам, heartbeat не нужен.
	s.mu.Lock()
	s.conn = conn
	err = s.sendSubscribeLocked(pairs)
	s.mu.Unlock()
	if err != nil {
		conn.Close()
		return err
	}

	defer func() {
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()
	}()

	// Цикл чтения
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		var event wsMiniTicker
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}

		// Ответы на SUBSCRIBE и прочий шум без тикер-данных пропускаем
		if event.EventType != "24hrMiniTicker" || event.ClosePrice.IsZero() {
			continue
		}

		s.subsMu.RLock()
		tokenID, ok := s.subs[event.Symbol]
		s.subsMu.RUnlock()
		if !ok {
			continue
		}

		update := domain.PriceUpdateEvent{
			TokenID: tokenID,
			Symbol:  event.Symbol,
			Price:   event.ClosePrice,
			Time:    time.Now(),
			Source:  "binance-ws",
		}

		select {
		case out <- update:
		default:
			// Канал переполнен - теряем устаревший тик
		}
	}
}

// caller держит s.mu
func (s *Stream) sendSubscribeLocked(pairs []string) error {
	if len(pairs) == 0 || s.conn == nil {
		return nil
	}

	params := make([]string, len(pairs))
	for i, p := range pairs {
		params[i] = strings.ToLower(p) + "@miniTicker"
	}

	s.nextID++
	req := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     s.nextID,
	}

	s.logger.Info("Sending stream subscription", slog.Any("topics", params))
	return s.conn.WriteJSON(req)
}

// wsMiniTicker соответствует событию <symbol>@miniTicker
type wsMiniTicker struct {
	EventType  string          `json:"e"`
	Symbol     string          `json:"s"`
	ClosePrice decimal.Decimal `json:"c"`
}
