package alert

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"matchpulse/pkg/types"
)

// TelegramNotifier delivers emitted signals to a Telegram chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegramNotifier connects to the Telegram bot API. Callers skip
// construction entirely when Telegram delivery is not configured.
func NewTelegramNotifier(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	logger.Info("telegram notifier initialized", "username", api.Self.UserName)
	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		logger: logger.With("component", "telegram"),
	}, nil
}

// NotifySignal sends one alert message.
func (t *TelegramNotifier) NotifySignal(sig types.SmartMoneySignal) error {
	text := fmt.Sprintf(
		"💸 Smart money: %s\n%s (%s)\nFlow score: %.0f/100\nOdds %s: %.2f/%.2f/%.2f → %.2f/%.2f/%.2f",
		sig.Movement,
		sig.MatchID,
		sig.League,
		sig.FlowScore,
		sig.Market,
		sig.Baseline.Home, sig.Baseline.Draw, sig.Baseline.Away,
		sig.Current.Home, sig.Current.Draw, sig.Current.Away,
	)
	_, err := t.api.Send(tgbotapi.NewMessage(t.chatID, text))
	return err
}
