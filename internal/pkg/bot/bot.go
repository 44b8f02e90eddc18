// Package bot answers book searches over the Telegram Bot API.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2/log"

	"github.com/samduuf/elibrary/app/models"
)

const (
	MinQueryLength = 3
	MaxResults     = 5
)

const (
	msgGreeting = "Assalomu alaykum, %s! 📚\n\n" +
		"Men SamDUUF Elektron Kutubxonasi botiman.\n" +
		"Menga kitob nomini, muallifini yoki mavzusini yozing, men sizga topib beraman.\n\n" +
		"Masalan: *Python*, *Navoiy*, *Tarix*"
	msgTooShort    = "Iltimos, qidirish uchun kamida 3 ta harf kiriting."
	msgNotFound    = "Afsuski, hech qanday kitob topilmadi. 😔\nBoshqa so'z bilan urinib ko'ring."
	msgSearchError = "Qidirishda xatolik yuz berdi. Iltimos keyinroq urinib ko'ring."
	msgReadButton  = "📖 O'qish (Saytda)"
)

// BookSearcher matches a free-text query against the catalog, subjects included.
type BookSearcher interface {
	Search(query string, limit int) ([]models.Book, error)
}

// URLResolver turns a stored cover key into a public URL.
type URLResolver interface {
	URL(key string) string
}

type Config struct {
	SiteURL string
	// PollTimeout is the long-poll wait per getUpdates call.
	PollTimeout time.Duration
}

type Bot struct {
	cfg    Config
	api    Messenger
	books  BookSearcher
	media  URLResolver
	offset int
}

func New(cfg Config, api Messenger, books BookSearcher, media URLResolver) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	return &Bot{
		cfg:   cfg,
		api:   api,
		books: books,
		media: media,
	}
}

// Run polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	log.Infof("[Bot] polling for updates")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := b.Poll(ctx); err != nil {
			log.Errorf("[Bot] poll failed: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
		}
	}
}

// Poll fetches one batch of updates and handles them in order.
func (b *Bot) Poll(ctx context.Context) error {
	req := tgbotapi.NewUpdate(b.offset)
	req.Timeout = int(b.cfg.PollTimeout / time.Second)
	req.AllowedUpdates = []string{"message"}

	updates, err := b.api.GetUpdates(req)
	if err != nil {
		return err
	}
	for _, u := range updates {
		if u.UpdateID >= b.offset {
			b.offset = u.UpdateID + 1
		}
		if err := b.HandleUpdate(ctx, u); err != nil {
			log.Warnf("[Bot] update %d: %v", u.UpdateID, err)
		}
	}
	return nil
}

func (b *Bot) HandleUpdate(_ context.Context, u tgbotapi.Update) error {
	msg := u.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return nil
	}
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		if command(text) == "start" {
			name := ""
			if msg.From != nil {
				name = msg.From.FirstName
			}
			return b.sendText(msg.Chat.ID, fmt.Sprintf(msgGreeting, escapeMarkdown(name)), nil)
		}
		return nil
	}

	return b.search(msg.Chat.ID, text)
}

func (b *Bot) search(chatID int64, query string) error {
	if len([]rune(query)) < MinQueryLength {
		return b.sendText(chatID, msgTooShort, nil)
	}
	if err := b.typing(chatID); err != nil {
		log.Debugf("[Bot] chat action: %v", err)
	}

	books, err := b.books.Search(query, MaxResults)
	if err != nil {
		log.Errorf("[Bot] search %q: %v", query, err)
		return b.sendText(chatID, msgSearchError, nil)
	}
	if len(books) == 0 {
		return b.sendText(chatID, msgNotFound, nil)
	}

	for _, book := range books {
		if err := b.sendBook(chatID, book); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) sendBook(chatID int64, book models.Book) error {
	caption := fmt.Sprintf("📖 *%s*\n👤 *Muallif:* %s\n📂 *Kategoriya:* %s\n",
		escapeMarkdown(book.Title), escapeMarkdown(book.Author), escapeMarkdown(book.Category))
	markup := readButton(b.BookURL(book.ID))

	if cover := b.coverURL(book.CoverImage); cover != "" {
		err := b.sendPhoto(chatID, cover, caption, markup)
		if err == nil {
			return nil
		}
		log.Warnf("[Bot] photo for book %d: %v", book.ID, err)
	}
	return b.sendText(chatID, caption, &markup)
}

// BookURL is the public page of a book.
func (b *Bot) BookURL(id uint) string {
	return b.cfg.SiteURL + "/book/" + strconv.FormatUint(uint64(id), 10)
}

// coverURL returns an absolute cover URL or "" when Telegram could not fetch it.
func (b *Bot) coverURL(key string) string {
	if key == "" {
		return ""
	}
	u := key
	if b.media != nil {
		u = b.media.URL(key)
	}
	if strings.HasPrefix(u, "/") {
		u = b.cfg.SiteURL + u
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return ""
	}
	return u
}

func command(text string) string {
	cmd := strings.Fields(text)[0]
	cmd = strings.TrimPrefix(cmd, "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

func escapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
