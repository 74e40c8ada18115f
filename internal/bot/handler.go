package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/minhdn/price-alert-bot/internal/domain"
	"github.com/minhdn/price-alert-bot/internal/monitor"
	"github.com/minhdn/price-alert-bot/internal/usecase"
)

type Handler struct {
	bot     *tgbotapi.BotAPI
	alerts  *usecase.AlertService
	monitor *monitor.Monitor
	logger  *slog.Logger

	states map[int64]*UserState
	mu     sync.RWMutex
}

// UserState - шаг диалога создания алерта
type UserState struct {
	Step       string // awaiting_symbol, awaiting_condition, awaiting_price
	TempSymbol string
	TempType   domain.AlertCondition
}

func NewHandler(
	bot *tgbotapi.BotAPI,
	alerts *usecase.AlertService,
	mon *monitor.Monitor,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		bot:     bot,
		alerts:  alerts,
		monitor: mon,
		logger:  logger,
		states:  make(map[int64]*UserState),
	}
}

func (h *Handler) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message != nil {
			go h.handleMessage(ctx, update.Message)
		} else if update.CallbackQuery != nil {
			go h.handleCallback(ctx, update.CallbackQuery)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	// Обработка команд
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			h.cmdStart(msg)
		case "myalerts":
			h.cmdMyAlerts(ctx, msg)
		case "delete":
			h.cmdDelete(ctx, msg)
		case "forceprice":
			h.cmdForcePrice(ctx, msg)
		case "startmonitor":
			h.cmdStartMonitor(msg)
		case "stopmonitor":
			h.cmdStopMonitor(msg)
		case "monitorstatus":
			h.cmdMonitorStatus(msg)
		case "monitordetail":
			h.cmdMonitorDetail(ctx, msg)
		}
		return
	}

	// Обработка состояний (State Machine)
	h.mu.RLock()
	state := h.states[userID]
	h.mu.RUnlock()

	if state != nil {
		h.handleStateMachine(ctx, msg, state)
	} else {
		h.send(msg.Chat.ID, "Используйте /start, чтобы создать новый алерт.")
	}
}

// --- Commands ---

func (h *Handler) cmdStart(msg *tgbotapi.Message) {
	h.mu.Lock()
	h.states[msg.From.ID] = &UserState{Step: "awaiting_symbol"}
	h.mu.Unlock()

	h.send(msg.Chat.ID,
		"👋 Привет! Я слежу за ценами токенов и присылаю уведомление, когда цена пересекает заданный порог.\n\n"+
			"Введите тикер токена (например BTC, ETH):")
}

func (h *Handler) cmdMyAlerts(ctx context.Context, msg *tgbotapi.Message) {
	alerts, err := h.alerts.ListAlerts(ctx, msg.From.ID)
	if err != nil {
		h.logger.Error("Failed to list alerts", slog.String("err", err.Error()))
		h.send(msg.Chat.ID, "⚠️ Не получилось загрузить ваши алерты, попробуйте позже.")
		return
	}

	if len(alerts) == 0 {
		h.send(msg.Chat.ID, "У вас пока нет алертов. Создайте новый через /start.")
		return
	}

	var b strings.Builder
	b.WriteString("📊 *ВАШИ АЛЕРТЫ*\n\n")
	for i, a := range alerts {
		direction := "выше"
		if a.Condition == domain.ConditionBelow {
			direction = "ниже"
		}
		fmt.Fprintf(&b, "*%d. %s* - цена %s $%s\n   ID: `%d`\n\n",
			i+1, a.Symbol, direction, a.TargetPrice.String(), a.ID)
	}
	b.WriteString("Удалить алерт: `/delete ID`")

	h.sendMarkdown(msg.Chat.ID, b.String())
}

func (h *Handler) cmdDelete(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		h.sendMarkdown(msg.Chat.ID, "Неверный формат. Используйте: `/delete ID` (ID берется из /myalerts).")
		return
	}

	deleted, err := h.alerts.DeleteAlert(ctx, id, msg.From.ID)
	if err != nil {
		h.logger.Error("Failed to delete alert", slog.Int64("alert_id", id), slog.String("err", err.Error()))
		h.send(msg.Chat.ID, "⚠️ Не получилось удалить алерт, попробуйте позже.")
		return
	}

	if !deleted {
		h.send(msg.Chat.ID, "Алерт с таким ID не найден или принадлежит не вам.")
		return
	}
	h.send(msg.Chat.ID, "✅ Алерт удален.")
}

func (h *Handler) cmdForcePrice(ctx context.Context, msg *tgbotapi.Message) {
	h.send(msg.Chat.ID, "Запускаю внеочередную проверку цен, подождите...")

	h.monitor.RunCycle(ctx)

	h.send(msg.Chat.ID, "Проверка завершена. Если какой-то порог пересечен, уведомление уже у вас.")
}

func (h *Handler) cmdStartMonitor(msg *tgbotapi.Message) {
	if h.monitor.IsRunning() {
		h.send(msg.Chat.ID, "⚠️ Мониторинг цен уже работает.")
		return
	}

	h.monitor.Start()
	h.logger.Info("Monitor started by user", slog.Int64("user_id", msg.From.ID))
	h.send(msg.Chat.ID, "✅ Мониторинг цен запущен.")
}

func (h *Handler) cmdStopMonitor(msg *tgbotapi.Message) {
	if !h.monitor.Stop() {
		h.send(msg.Chat.ID, "⚠️ Мониторинг цен и так остановлен.")
		return
	}

	h.logger.Info("Monitor stopped by user", slog.Int64("user_id", msg.From.ID))
	h.send(msg.Chat.ID, "✅ Мониторинг цен остановлен.")
}

func (h *Handler) cmdMonitorStatus(msg *tgbotapi.Message) {
	if h.monitor.IsRunning() {
		h.send(msg.Chat.ID, "✅ Мониторинг цен РАБОТАЕТ")
	} else {
		h.send(msg.Chat.ID, "❌ Мониторинг цен ОСТАНОВЛЕН")
	}
}

func (h *Handler) cmdMonitorDetail(ctx context.Context, msg *tgbotapi.Message) {
	st := h.monitor.Status()

	count, err := h.alerts.ActiveAlertCount(ctx)
	if err != nil {
		h.logger.Error("Failed to count active alerts", slog.String("err", err.Error()))
	}

	status := "❌ Мониторинг цен ОСТАНОВЛЕН"
	if st.Running {
		status = "✅ Мониторинг цен РАБОТАЕТ"
	}

	text := fmt.Sprintf(
		"%s\n\n🔄 Состояние системы:\n"+
			"- Активных алертов: %d\n"+
			"- Токенов в кэше: %d\n"+
			"- Вызовов API в текущем окне: %d/%d\n"+
			"- Период проверки: %s",
		status, count, st.CachedTokens, st.APICallsUsed, st.APILimit, st.Interval,
	)
	h.send(msg.Chat.ID, text)
}

// --- State Machine ---

func (h *Handler) handleStateMachine(ctx context.Context, msg *tgbotapi.Message, state *UserState) {
	switch state.Step {
	case "awaiting_symbol":
		h.processSymbol(msg, state)
	case "awaiting_price":
		h.processPrice(ctx, msg, state)
	}
}

func (h *Handler) processSymbol(msg *tgbotapi.Message, state *UserState) {
	symbol := strings.ToUpper(strings.TrimSpace(msg.Text))
	if symbol == "" || strings.ContainsAny(symbol, " \t") {
		h.send(msg.Chat.ID, "Введите один тикер без пробелов, например BTC:")
		return
	}

	state.TempSymbol = symbol
	state.Step = "awaiting_condition"

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📈 Выше порога", "alert_above"),
			tgbotapi.NewInlineKeyboardButtonData("📉 Ниже порога", "alert_below"),
		),
	)

	reply := tgbotapi.NewMessage(msg.Chat.ID,
		fmt.Sprintf("Когда присылать уведомление о %s?", symbol))
	reply.ReplyMarkup = kb
	if _, err := h.bot.Send(reply); err != nil {
		h.logger.Error("Failed to send message", slog.String("err", err.Error()))
	}
}

func (h *Handler) processPrice(ctx context.Context, msg *tgbotapi.Message, state *UserState) {
	price, err := decimal.NewFromString(strings.TrimSpace(msg.Text))
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		h.send(msg.Chat.ID, "Введите число больше нуля:")
		return
	}

	alert, err := h.alerts.CreateAlert(ctx, msg.From.ID, state.TempSymbol, state.TempType, price)
	if err != nil {
		h.logger.Error("Failed to create alert", slog.String("err", err.Error()))
		h.send(msg.Chat.ID, "⚠️ Не получилось сохранить алерт, попробуйте позже.")
		h.resetState(msg.From.ID)
		return
	}

	direction := "поднимется выше"
	if alert.Condition == domain.ConditionBelow {
		direction = "опустится ниже"
	}
	h.send(msg.Chat.ID, fmt.Sprintf(
		"✅ Алерт для %s создан!\nВы получите уведомление, когда цена %s $%s.",
		alert.Symbol, direction, alert.TargetPrice.String()))

	h.resetState(msg.From.ID)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	userID := cb.From.ID

	h.mu.RLock()
	state := h.states[userID]
	h.mu.RUnlock()

	// Гасим "часики" на кнопке в любом случае
	if _, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		h.logger.Error("Failed to answer callback", slog.String("err", err.Error()))
	}

	if state == nil || state.Step != "awaiting_condition" {
		return
	}

	switch cb.Data {
	case "alert_above":
		state.TempType = domain.ConditionAbove
	case "alert_below":
		state.TempType = domain.ConditionBelow
	default:
		return
	}
	state.Step = "awaiting_price"

	direction := "поднимется выше"
	if state.TempType == domain.ConditionBelow {
		direction = "опустится ниже"
	}
	h.send(cb.Message.Chat.ID, fmt.Sprintf(
		"Введите порог в USD: уведомление придет, когда %s %s этой цены.",
		state.TempSymbol, direction))
}

// --- Helpers ---

func (h *Handler) resetState(userID int64) {
	h.mu.Lock()
	delete(h.states, userID)
	h.mu.Unlock()
}

func (h *Handler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("Failed to send message",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()))
	}
}

func (h *Handler) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("Failed to send message",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()))
	}
}
