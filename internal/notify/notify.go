// Package notify delivers operational alerts (failed renewals, upcoming
// expirations) to the service operator.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier receives scheduler events. Implementations must be safe for
// concurrent use; failures to deliver are logged, never propagated.
type Notifier interface {
	RenewalFailed(domain string, err error)
	DomainExpiring(domain string, days int)
}

// Nop discards all notifications. Used when no channel is configured.
type Nop struct{}

func (Nop) RenewalFailed(string, error) {}
func (Nop) DomainExpiring(string, int)  {}

// Telegram sends notifications to a fixed chat via a bot.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) RenewalFailed(domain string, err error) {
	t.send(fmt.Sprintf("⚠️ Auto-renewal failed for %s: %v", domain, err))
}

func (t *Telegram) DomainExpiring(domain string, days int) {
	t.send(fmt.Sprintf("⏳ %s expires in %d day(s) and auto-renew is off", domain, days))
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("notify: telegram send failed: %v", err)
	}
}

var _ Notifier = Nop{}
var _ Notifier = (*Telegram)(nil)
