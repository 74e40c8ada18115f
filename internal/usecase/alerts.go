package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minhdn/price-alert-bot/internal/domain"
)

var ErrInvalidPrice = errors.New("target price must be greater than zero")

const mirrorSyncTimeout = 15 * time.Second

// AlertService - создание, листинг и удаление подписок на ценовые пороги
type AlertService struct {
	repo   domain.AlertRepository
	mirror domain.MirrorStore
	logger *slog.Logger
}

func NewAlertService(repo domain.AlertRepository, mirror domain.MirrorStore, logger *slog.Logger) *AlertService {
	return &AlertService{
		repo:   repo,
		mirror: mirror,
		logger: logger,
	}
}

// CreateAlert сохраняет алерт в БД и асинхронно дублирует его в зеркало.
// Зеркало не авторитетно: его ошибка не видна пользователю и никогда
// не откатывает основную запись.
func (s *AlertService) CreateAlert(
	ctx context.Context,
	userID int64,
	symbol string,
	condition domain.AlertCondition,
	target decimal.Decimal,
) (*domain.Alert, error) {
	if target.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidPrice
	}

	alert := &domain.Alert{
		UserID:      userID,
		Symbol:      strings.ToUpper(strings.TrimSpace(symbol)),
		Condition:   condition,
		TargetPrice: target,
		IsActive:    true,
	}

	if err := s.repo.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}

	// Fire-and-forget: синхронизация зеркала отвязана от контекста запроса
	if s.mirror != nil {
		go s.syncMirror(*alert)
	}

	return alert, nil
}

func (s *AlertService) syncMirror(alert domain.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorSyncTimeout)
	defer cancel()

	token := domain.MirrorToken{
		ID:         domain.ResolveTokenID(alert.Symbol),
		Threshold:  alert.TargetPrice.InexactFloat64(),
		Type:       strings.ToLower(string(alert.Condition)),
		Name:       alert.Symbol,
		IDTelegram: alert.UserID,
	}

	if err := s.mirror.AppendToken(ctx, token); err != nil {
		s.logger.Warn("Mirror sync failed, primary store unaffected",
			slog.String("symbol", alert.Symbol),
			slog.String("err", err.Error()))
	}
}

func (s *AlertService) ListAlerts(ctx context.Context, userID int64) ([]domain.Alert, error) {
	return s.repo.GetUserAlerts(ctx, userID)
}

func (s *AlertService) DeleteAlert(ctx context.Context, id int64, userID int64) (bool, error) {
	return s.repo.DeleteAlert(ctx, id, userID)
}

// ActiveAlertCount - сколько алертов сейчас под мониторингом (для /monitordetail)
func (s *AlertService) ActiveAlertCount(ctx context.Context) (int, error) {
	alerts, err := s.repo.GetActiveAlerts(ctx)
	if err != nil {
		return 0, err
	}
	return len(alerts), nil
}
