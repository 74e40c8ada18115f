package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minhdn/price-alert-bot/internal/domain"
)

type fakeRepo struct {
	alerts []domain.Alert
	err    error
}

func (f *fakeRepo) CreateAlert(context.Context, *domain.Alert) error { return nil }

func (f *fakeRepo) GetActiveAlerts(context.Context) ([]domain.Alert, error) {
	return f.alerts, f.err
}

func (f *fakeRepo) GetUserAlerts(context.Context, int64) ([]domain.Alert, error) {
	return nil, nil
}

func (f *fakeRepo) DeleteAlert(context.Context, int64, int64) (bool, error) {
	return false, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	sentTo  []int64
	failFor int64 // для этого пользователя доставка падает
}

func (f *fakeNotifier) NotifyUser(userID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor != 0 && userID == f.failFor {
		return fmt.Errorf("bot was blocked by the user")
	}
	f.sentTo = append(f.sentTo, userID)
	return nil
}

func (f *fakeNotifier) deliveries() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.sentTo...)
}

func newTestMonitor(repo *fakeRepo, provider *fakeProvider, notifier *fakeNotifier) (*Monitor, *fakeProvider) {
	logger := testLogger()
	cache := NewPriceCache(120 * time.Second)
	limiter := NewRateLimiter(100, time.Minute)
	source := NewPriceSource(provider, cache, limiter, logger)
	dispatcher := NewDispatcher(notifier, logger)

	// startupDelay в час, чтобы расписание не вмешивалось в тесты
	return New(repo, source, dispatcher, nil, logger, 30*time.Second, time.Hour), provider
}

func alert(user int64, symbol string, cond domain.AlertCondition, target int64) domain.Alert {
	return domain.Alert{
		UserID:      user,
		Symbol:      symbol,
		Condition:   cond,
		TargetPrice: decimal.NewFromInt(target),
		IsActive:    true,
	}
}

func TestRunCycleFiresOnlyMatchingCondition(t *testing.T) {
	// Два алерта на один тикер по разные стороны от цены:
	// сработать должен ровно один
	repo := &fakeRepo{alerts: []domain.Alert{
		alert(1, "BTC", domain.ConditionAbove, 90000),
		alert(2, "BTC", domain.ConditionBelow, 80000),
	}}
	provider := &fakeProvider{prices: map[string]decimal.Decimal{
		"bitcoin": decimal.NewFromInt(90000),
	}}
	notifier := &fakeNotifier{}
	m, _ := newTestMonitor(repo, provider, notifier)

	m.RunCycle(context.Background())

	sent := notifier.deliveries()
	if len(sent) != 1 || sent[0] != 1 {
		t.Fatalf("deliveries = %v, want exactly [1]", sent)
	}
	// Оба алерта на BTC - одна загрузка цены
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestRunCycleBelowThresholdDoesNotFire(t *testing.T) {
	repo := &fakeRepo{alerts: []domain.Alert{
		alert(1, "BTC", domain.ConditionAbove, 90000),
	}}
	provider := &fakeProvider{prices: map[string]decimal.Decimal{
		"bitcoin": decimal.RequireFromString("89999.99"),
	}}
	notifier := &fakeNotifier{}
	m, _ := newTestMonitor(repo, provider, notifier)

	m.RunCycle(context.Background())

	if sent := notifier.deliveries(); len(sent) != 0 {
		t.Errorf("deliveries = %v, want none", sent)
	}
}

func TestRunCycleStoreErrorAbortsCycle(t *testing.T) {
	repo := &fakeRepo{err: fmt.Errorf("connection refused")}
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	m, _ := newTestMonitor(repo, provider, notifier)

	m.RunCycle(context.Background())

	if provider.calls != 0 {
		t.Errorf("provider calls = %d after store failure, want 0", provider.calls)
	}
	if sent := notifier.deliveries(); len(sent) != 0 {
		t.Errorf("deliveries = %v after store failure, want none", sent)
	}
}

func TestRunCycleSkipsTokenWithoutPrice(t *testing.T) {
	// Цены BTC нет (провайдер падает, кэш пуст), ETH проверяется как обычно
	repo := &fakeRepo{alerts: []domain.Alert{
		alert(1, "BTC", domain.ConditionAbove, 1),
		alert(2, "ETH", domain.ConditionAbove, 1000),
	}}
	provider := &fakeProvider{prices: map[string]decimal.Decimal{
		"ethereum": decimal.NewFromInt(5000),
	}}
	notifier := &fakeNotifier{}
	m, _ := newTestMonitor(repo, provider, notifier)

	m.RunCycle(context.Background())

	sent := notifier.deliveries()
	if len(sent) != 1 || sent[0] != 2 {
		t.Fatalf("deliveries = %v, want exactly [2]", sent)
	}
}

func TestRunCycleDispatchFailureIsIsolated(t *testing.T) {
	repo := &fakeRepo{alerts: []domain.Alert{
		alert(1, "BTC", domain.ConditionAbove, 1),
		alert(2, "BTC", domain.ConditionAbove, 1),
	}}
	provider := &fakeProvider{prices: map[string]decimal.Decimal{
		"bitcoin": decimal.NewFromInt(90000),
	}}
	notifier := &fakeNotifier{failFor: 1}
	m, _ := newTestMonitor(repo, provider, notifier)

	m.RunCycle(context.Background())

	// Заблокировавший бота пользователь не мешает остальным
	sent := notifier.deliveries()
	if len(sent) != 1 || sent[0] != 2 {
		t.Fatalf("deliveries = %v, want exactly [2]", sent)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	repo := &fakeRepo{}
	m, _ := newTestMonitor(repo, &fakeProvider{}, &fakeNotifier{})

	if m.IsRunning() {
		t.Fatal("monitor running before Start")
	}
	if m.Stop() {
		t.Fatal("Stop on stopped monitor reported success")
	}

	m.Start()
	m.Start() // повторный Start - no-op
	if !m.IsRunning() {
		t.Fatal("monitor not running after Start")
	}

	if !m.Stop() {
		t.Fatal("Stop on running monitor reported failure")
	}
	if m.IsRunning() {
		t.Fatal("monitor still running after Stop")
	}
	if m.Stop() {
		t.Fatal("second Stop reported success")
	}
}

func TestRunCycleOverlapGuard(t *testing.T) {
	repo := &fakeRepo{alerts: []domain.Alert{
		alert(1, "BTC", domain.ConditionAbove, 1),
	}}
	provider := &fakeProvider{prices: map[string]decimal.Decimal{
		"bitcoin": decimal.NewFromInt(90000),
	}}
	notifier := &fakeNotifier{}
	m, _ := newTestMonitor(repo, provider, notifier)

	// Пока флаг занят, новый цикл пропускается целиком
	m.cycleBusy.Store(true)
	m.RunCycle(context.Background())

	if provider.calls != 0 || len(notifier.deliveries()) != 0 {
		t.Fatal("overlapping cycle was not skipped")
	}

	m.cycleBusy.Store(false)
	m.RunCycle(context.Background())
	if len(notifier.deliveries()) != 1 {
		t.Fatal("cycle did not run after guard release")
	}
}

func TestGroupBySymbolKeepsFirstSeenOrder(t *testing.T) {
	alerts := []domain.Alert{
		alert(1, "ETH", domain.ConditionAbove, 1),
		alert(2, "BTC", domain.ConditionAbove, 1),
		alert(3, "ETH", domain.ConditionBelow, 2),
	}

	groups, order := groupBySymbol(alerts)

	if len(order) != 2 || order[0] != "ETH" || order[1] != "BTC" {
		t.Fatalf("order = %v, want [ETH BTC]", order)
	}
	if len(groups["ETH"]) != 2 || len(groups["BTC"]) != 1 {
		t.Fatalf("groups sizes = %d/%d, want 2/1", len(groups["ETH"]), len(groups["BTC"]))
	}
	// Внутри группы - порядок выдачи хранилища
	if groups["ETH"][0].UserID != 1 || groups["ETH"][1].UserID != 3 {
		t.Error("group does not keep storage order")
	}
}
