// Package notify posts group-safe announcements to a Telegram chat. It only
// ever announces events every member may see (a member adding a wish to
// their own list, a member joining); claim events and suggested wishes are
// excluded so the channel can never spoil a surprise.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// TelegramNotifier implements service.Notifier on top of a Telegram chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *logrus.Logger
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token string, chatID int64, logger *logrus.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Infof("Telegram notifier authorized on account %s", api.Self.UserName)

	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		logger: logger,
	}, nil
}

// WishCreated announces a new wish to the group chat.
func (n *TelegramNotifier) WishCreated(ownerName, wishName string) {
	n.send(fmt.Sprintf("🎁 A new wish appeared for *%s*: %s", ownerName, wishName))
}

// MemberJoined announces a new member to the group chat.
func (n *TelegramNotifier) MemberJoined(memberName string) {
	n.send(fmt.Sprintf("👋 *%s* joined the wishlist", memberName))
}

func (n *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		n.logger.Errorf("Failed to send Telegram notification: %v", err)
	}
}
