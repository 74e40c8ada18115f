package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/minhdn/price-alert-bot/internal/domain"
)

// Monitor - движок мониторинга цен. По расписанию загружает активные
// алерты, группирует их по тикеру, достает цену на каждый тикер и
// рассылает уведомления о пересечении порогов.
type Monitor struct {
	repo       domain.AlertRepository
	source     *PriceSource
	dispatcher *Dispatcher
	streamer   domain.MarketStreamer // nil, если живой поток выключен
	logger     *slog.Logger

	checkInterval time.Duration
	startupDelay  time.Duration

	mu        sync.Mutex
	running   bool
	scheduler *gocron.Scheduler
	firstRun  *time.Timer

	cycleBusy atomic.Bool // защита от наложения циклов
}

func New(
	repo domain.AlertRepository,
	source *PriceSource,
	dispatcher *Dispatcher,
	streamer domain.MarketStreamer,
	logger *slog.Logger,
	checkInterval time.Duration,
	startupDelay time.Duration,
) *Monitor {
	return &Monitor{
		repo:          repo,
		source:        source,
		dispatcher:    dispatcher,
		streamer:      streamer,
		logger:        logger,
		checkInterval: checkInterval,
		startupDelay:  startupDelay,
	}
}

// Start запускает периодические проверки. Повторный вызов - no-op.
// Первая проверка уходит через startupDelay, чтобы не блокировать
// вызывающего, дальше цикл повторяется каждые checkInterval.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.logger.Info("Monitor already running, start ignored")
		return
	}

	m.logger.Info("🔄 Starting price monitor",
		slog.Duration("interval", m.checkInterval))

	m.firstRun = time.AfterFunc(m.startupDelay, func() {
		m.RunCycle(context.Background())
	})

	s := gocron.NewScheduler(time.UTC)
	// WaitForSchedule: первый тик через полный интервал, мгновенная
	// проверка уже запланирована через firstRun
	if _, err := s.Every(m.checkInterval).WaitForSchedule().Do(func() {
		m.RunCycle(context.Background())
	}); err != nil {
		m.logger.Error("Failed to schedule check cycle", slog.String("err", err.Error()))
		m.firstRun.Stop()
		m.firstRun = nil
		return
	}
	s.StartAsync()

	m.scheduler = s
	m.running = true
}

// Stop отменяет будущие проверки; уже идущий цикл дорабатывает до конца.
// false - монитор и так остановлен.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		m.logger.Info("Monitor is not running, nothing to stop")
		return false
	}

	if m.firstRun != nil {
		m.firstRun.Stop()
		m.firstRun = nil
	}
	m.scheduler.Stop()
	m.scheduler = nil
	m.running = false

	m.logger.Info("Price monitor stopped")
	return true
}

// IsRunning - чистый запрос состояния
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Status - снимок внутренностей для /monitordetail
type Status struct {
	Running      bool
	CachedTokens int
	APICallsUsed int
	APILimit     int
	Interval     time.Duration
}

func (m *Monitor) Status() Status {
	return Status{
		Running:      m.IsRunning(),
		CachedTokens: m.source.cache.Len(),
		APICallsUsed: m.source.limiter.Used(),
		APILimit:     m.source.limiter.Limit(),
		Interval:     m.checkInterval,
	}
}

// RunCycle выполняет одну проверку всех активных алертов. Вызывается и по
// расписанию, и вручную (/forceprice). Если предыдущий цикл еще не
// закончил, новый пропускается целиком: наложение циклов дало бы дубли
// запросов и уведомлений по одному и тому же тикеру.
func (m *Monitor) RunCycle(ctx context.Context) {
	if !m.cycleBusy.CompareAndSwap(false, true) {
		m.logger.Warn("Previous check cycle still in progress, skipping")
		return
	}
	defer m.cycleBusy.Store(false)

	alerts, err := m.repo.GetActiveAlerts(ctx)
	if err != nil {
		// Без списка алертов частичная обработка невозможна, цикл
		// прерывается целиком до следующего тика
		m.logger.Error("Failed to load active alerts, cycle aborted",
			slog.String("err", err.Error()))
		return
	}
	if len(alerts) == 0 {
		return
	}

	groups, order := groupBySymbol(alerts)
	m.logger.Info("Checking alerts",
		slog.Int("alerts", len(alerts)),
		slog.Int("tokens", len(order)))

	m.syncStream(order)

	for _, symbol := range order {
		tokenID := domain.ResolveTokenID(symbol)

		price, ok := m.source.FetchPrice(ctx, tokenID)
		if !ok {
			// Токен пропускается до следующего цикла, без повторов
			m.logger.Warn("No price available, skipping token",
				slog.String("symbol", symbol))
			continue
		}

		for _, alert := range groups[symbol] {
			if !alert.ShouldFire(price) {
				continue
			}
			m.dispatcher.Dispatch(domain.AlertEvent{
				UserID:        alert.UserID,
				Symbol:        alert.Symbol,
				ObservedPrice: price,
				TargetPrice:   alert.TargetPrice,
				Condition:     alert.Condition,
			})
		}
	}
}

// groupBySymbol группирует алерты по тикеру, сохраняя порядок первого
// появления: от него зависит порядок обхода токенов внутри цикла
func groupBySymbol(alerts []domain.Alert) (map[string][]domain.Alert, []string) {
	groups := make(map[string][]domain.Alert)
	var order []string
	for _, a := range alerts {
		if _, ok := groups[a.Symbol]; !ok {
			order = append(order, a.Symbol)
		}
		groups[a.Symbol] = append(groups[a.Symbol], a)
	}
	return groups, order
}

// syncStream держит подписки живого потока в соответствии с тикерами цикла
func (m *Monitor) syncStream(order []string) {
	if m.streamer == nil {
		return
	}

	tokens := make(map[string]string, len(order))
	for _, symbol := range order {
		tokens[symbol] = domain.ResolveTokenID(symbol)
	}
	if err := m.streamer.EnsureSubscribed(tokens); err != nil {
		m.logger.Warn("Failed to sync stream subscriptions",
			slog.String("err", err.Error()))
	}
}
