package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minhdn/price-alert-bot/internal/domain"
)

type stubRepo struct {
	created   []domain.Alert
	createErr error
}

func (r *stubRepo) CreateAlert(_ context.Context, a *domain.Alert) error {
	if r.createErr != nil {
		return r.createErr
	}
	a.ID = int64(len(r.created) + 1)
	r.created = append(r.created, *a)
	return nil
}

func (r *stubRepo) GetActiveAlerts(context.Context) ([]domain.Alert, error) {
	return r.created, nil
}

func (r *stubRepo) GetUserAlerts(context.Context, int64) ([]domain.Alert, error) {
	return nil, nil
}

func (r *stubRepo) DeleteAlert(context.Context, int64, int64) (bool, error) {
	return true, nil
}

// channelMirror отдает принятые токены в канал, чтобы тест мог дождаться
// асинхронной синхронизации
type channelMirror struct {
	appended chan domain.MirrorToken
	err      error
}

func newChannelMirror() *channelMirror {
	return &channelMirror{appended: make(chan domain.MirrorToken, 1)}
}

func (m *channelMirror) FetchTokens(context.Context) ([]domain.MirrorToken, error) {
	return nil, nil
}

func (m *channelMirror) AppendToken(_ context.Context, token domain.MirrorToken) error {
	m.appended <- token
	return m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateAlertRejectsNonPositivePrice(t *testing.T) {
	s := NewAlertService(&stubRepo{}, nil, testLogger())

	for _, target := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := s.CreateAlert(context.Background(), 1, "BTC", domain.ConditionAbove, target)
		if err != ErrInvalidPrice {
			t.Errorf("CreateAlert(target=%s) err = %v, want ErrInvalidPrice", target, err)
		}
	}
}

func TestCreateAlertNormalizesSymbol(t *testing.T) {
	repo := &stubRepo{}
	s := NewAlertService(repo, nil, testLogger())

	alert, err := s.CreateAlert(context.Background(), 1, "  btc ", domain.ConditionAbove, decimal.NewFromInt(90000))
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	if alert.Symbol != "BTC" {
		t.Errorf("Symbol = %q, want BTC", alert.Symbol)
	}
	if !alert.IsActive {
		t.Error("new alert is not active")
	}
	if len(repo.created) != 1 {
		t.Fatalf("repo holds %d alerts, want 1", len(repo.created))
	}
}

func TestCreateAlertSyncsMirror(t *testing.T) {
	mirror := newChannelMirror()
	s := NewAlertService(&stubRepo{}, mirror, testLogger())

	_, err := s.CreateAlert(context.Background(), 42, "SUI", domain.ConditionBelow, decimal.RequireFromString("0.16"))
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}

	select {
	case token := <-mirror.appended:
		if token.ID != "sui" || token.Type != "below" || token.Name != "SUI" || token.IDTelegram != 42 {
			t.Errorf("mirror token = %+v", token)
		}
		if token.Threshold != 0.16 {
			t.Errorf("Threshold = %v, want 0.16", token.Threshold)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mirror sync never happened")
	}
}

func TestCreateAlertMirrorFailureDoesNotFailCreate(t *testing.T) {
	mirror := newChannelMirror()
	mirror.err = fmt.Errorf("github is down")
	repo := &stubRepo{}
	s := NewAlertService(repo, mirror, testLogger())

	alert, err := s.CreateAlert(context.Background(), 1, "BTC", domain.ConditionAbove, decimal.NewFromInt(90000))
	if err != nil {
		t.Fatalf("CreateAlert failed on mirror error: %v", err)
	}
	if alert.ID == 0 {
		t.Error("alert was not persisted")
	}

	select {
	case <-mirror.appended:
	case <-time.After(2 * time.Second):
		t.Fatal("mirror sync never attempted")
	}
}

func TestCreateAlertRepoFailureSkipsMirror(t *testing.T) {
	mirror := newChannelMirror()
	repo := &stubRepo{createErr: fmt.Errorf("connection refused")}
	s := NewAlertService(repo, mirror, testLogger())

	if _, err := s.CreateAlert(context.Background(), 1, "BTC", domain.ConditionAbove, decimal.NewFromInt(1)); err == nil {
		t.Fatal("expected repo error")
	}

	select {
	case <-mirror.appended:
		t.Fatal("mirror synced after failed primary write")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestActiveAlertCount(t *testing.T) {
	repo := &stubRepo{}
	s := NewAlertService(repo, nil, testLogger())

	s.CreateAlert(context.Background(), 1, "BTC", domain.ConditionAbove, decimal.NewFromInt(1))
	s.CreateAlert(context.Background(), 2, "ETH", domain.ConditionBelow, decimal.NewFromInt(2))

	n, err := s.ActiveAlertCount(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("ActiveAlertCount = (%d, %v), want (2, nil)", n, err)
	}
}
