package bot

import (
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger is the part of the Bot API client the bot uses. *tgbotapi.BotAPI
// satisfies it.
type Messenger interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// NewAPI connects to the Bot API and checks the token with getMe. base
// replaces https://api.telegram.org, e.g. for a self-hosted Bot API server.
func NewAPI(token, base string, pollTimeout time.Duration) (*tgbotapi.BotAPI, error) {
	endpoint := tgbotapi.APIEndpoint
	if base != "" {
		endpoint = strings.TrimRight(base, "/") + "/bot%s/%s"
	}
	// The client timeout has to outlast a long poll.
	client := &http.Client{Timeout: pollTimeout + 10*time.Second}
	return tgbotapi.NewBotAPIWithClient(token, endpoint, client)
}

func readButton(url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(msgReadButton, url)),
	)
}

func (b *Bot) sendText(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendPhoto(chatID int64, photoURL, caption string, markup tgbotapi.InlineKeyboardMarkup) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	photo.ReplyMarkup = markup
	_, err := b.api.Send(photo)
	return err
}

func (b *Bot) typing(chatID int64) error {
	// sendChatAction answers true, not a Message, so Send cannot decode it.
	_, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}
