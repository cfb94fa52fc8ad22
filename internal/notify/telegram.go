// Package notify delivers operational alerts to the on-duty team. The hub
// raises an alert when a veteran asks for help and nobody is there to take
// it; someone must see that even when no staff member is signed in.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier is the alerting boundary the hub depends on.
type Notifier interface {
	// StaffUnavailable fires when a help request found no eligible staff.
	StaffUnavailable(userName, preferredType, reason string)
	// RequestExpired fires when a fanned-out request timed out unaccepted.
	RequestExpired(userName string, notified int)
	// PanicAlert fires for a help request whose reason marks it as a
	// panic/crisis alert.
	PanicAlert(userName string)
}

// Nop is used when no Telegram credentials are configured.
type Nop struct{}

func (Nop) StaffUnavailable(string, string, string) {}
func (Nop) RequestExpired(string, int)              {}
func (Nop) PanicAlert(string)                       {}

// Telegram sends alerts to a fixed ops chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram authenticates the bot and returns the notifier.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Printf("Ops alerting authorized as @%s", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) StaffUnavailable(userName, preferredType, reason string) {
	t.send(fmt.Sprintf("⚠️ No %s available for %s (reason: %s). User offered the callback path.", preferredType, userName, reason))
}

func (t *Telegram) RequestExpired(userName string, notified int) {
	t.send(fmt.Sprintf("⏱ Help request from %s expired unanswered after notifying %d staff.", userName, notified))
}

func (t *Telegram) PanicAlert(userName string) {
	t.send(fmt.Sprintf("🚨 PANIC alert from %s — no staff picked up yet.", userName))
}

// send is fire-and-forget; alerting must never block the dispatch loop.
func (t *Telegram) send(text string) {
	go func() {
		msg := tgbotapi.NewMessage(t.chatID, text)
		if _, err := t.bot.Send(msg); err != nil {
			log.Printf("ERROR: failed to send ops alert: %v", err)
		}
	}()
}
