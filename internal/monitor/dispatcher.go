package monitor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/minhdn/price-alert-bot/internal/domain"
)

// Dispatcher формирует и отправляет уведомление о сработавшем алерте.
// Ошибка доставки гасится на месте: один заблокировавший бота получатель
// не должен ломать цикл проверки остальным.
type Dispatcher struct {
	notifier domain.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewDispatcher(notifier domain.Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (d *Dispatcher) Dispatch(event domain.AlertEvent) {
	direction := "поднялась выше порога"
	if event.Condition == domain.ConditionBelow {
		direction = "опустилась ниже порога"
	}

	msg := fmt.Sprintf(
		"🚨 *ЦЕНОВОЙ АЛЕРТ* 🚨\n\n"+
			"Токен: *%s*\n"+
			"Текущая цена: *$%s*\n"+
			"Установленный порог: *$%s*\n"+
			"Условие: цена %s\n\n"+
			"Время: %s",
		event.Symbol,
		event.ObservedPrice.String(),
		event.TargetPrice.String(),
		direction,
		d.now().Format("02.01.2006 15:04:05"),
	)

	if err := d.notifier.NotifyUser(event.UserID, msg); err != nil {
		d.logger.Error("Failed to deliver alert",
			slog.Int64("user_id", event.UserID),
			slog.String("symbol", event.Symbol),
			slog.String("err", err.Error()))
		return
	}

	d.logger.Info("Alert delivered",
		slog.Int64("user_id", event.UserID),
		slog.String("symbol", event.Symbol))
}
