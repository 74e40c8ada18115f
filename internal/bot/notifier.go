package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier доставляет алерты пользователю в личку
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramNotifier(bot *tgbotapi.BotAPI) *TelegramNotifier {
	return &TelegramNotifier{bot: bot}
}

func (n *TelegramNotifier) NotifyUser(userID int64, message string) error {
	msg := tgbotapi.NewMessage(userID, message)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := n.bot.Send(msg)
	return err
}
