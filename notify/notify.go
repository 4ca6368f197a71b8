// Package notify reports run outcomes to a Telegram chat. Notification is
// best-effort; the pipeline result never depends on it.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reddit-persona/pipeline"
	"reddit-persona/store"
)

// MessageSender is the slice of the Telegram bot API we use.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends run summaries to a fixed chat.
type Notifier struct {
	sender MessageSender
	chatID int64
}

// New creates a Notifier backed by a live Telegram bot.
func New(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return NewWithSender(bot, chatID), nil
}

// NewWithSender creates a Notifier with a custom sender (for testing).
func NewWithSender(sender MessageSender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID}
}

// RunFinished sends the outcome summary for a completed run.
func (n *Notifier) RunFinished(result *pipeline.Result) error {
	msg := tgbotapi.NewMessage(n.chatID, formatResult(result))
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func formatResult(result *pipeline.Result) string {
	icon := "✅"
	switch result.Outcome {
	case store.OutcomePartial:
		icon = "⚠️"
	case store.OutcomeFailure:
		icon = "❌"
	}

	text := fmt.Sprintf("%s Persona run for u/%s: %s\nItems used: %d/%d (%.1fs)",
		icon, result.Username, result.Outcome,
		result.ItemsUsed, result.ItemsFetched, result.Duration.Seconds())

	if result.Err != nil {
		text += fmt.Sprintf("\nError: %v", result.Err)
	} else if result.PersonaPath != "" {
		text += "\nReport: " + result.PersonaPath
	}
	return text
}
