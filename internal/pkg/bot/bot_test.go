package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samduuf/elibrary/app/models"
	"github.com/samduuf/elibrary/app/repository/repotest"
)

type apiCall struct {
	Method string
	Params map[string]string
}

// fakeTelegram answers Bot API calls the way api.telegram.org does; the client
// posts every call as a form.
type fakeTelegram struct {
	mu        sync.Mutex
	calls     []apiCall
	updates   []tgbotapi.Update
	failPhoto bool
	srv       *httptest.Server
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	ft := &fakeTelegram{}
	ft.srv = httptest.NewServer(http.HandlerFunc(ft.handle))
	t.Cleanup(ft.srv.Close)
	return ft
}

func (ft *fakeTelegram) handle(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	_ = r.ParseForm()
	params := map[string]string{}
	for k := range r.PostForm {
		params[k] = r.PostForm.Get(k)
	}

	ft.mu.Lock()
	ft.calls = append(ft.calls, apiCall{Method: method, Params: params})
	updates := ft.updates
	ft.updates = nil
	failPhoto := ft.failPhoto
	ft.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case method == "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Kutubxona","username":"samduuf_library_bot"}}`))
	case method == "getUpdates":
		if updates == nil {
			updates = []tgbotapi.Update{}
		}
		raw, _ := json.Marshal(updates)
		_, _ = fmt.Fprintf(w, `{"ok":true,"result":%s}`, raw)
	case method == "sendPhoto" && failPhoto:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: wrong file identifier"}`))
	case method == "sendChatAction":
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}
}

func (ft *fakeTelegram) sent(method string) []apiCall {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	out := make([]apiCall, 0)
	for _, c := range ft.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (ft *fakeTelegram) queue(updates ...tgbotapi.Update) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.updates = updates
}

func (ft *fakeTelegram) rejectPhotos() {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.failPhoto = true
}

type prefixResolver string

func (p prefixResolver) URL(key string) string {
	return string(p) + "/" + key
}

func newTestBot(t *testing.T, books ...models.Book) (*Bot, *fakeTelegram) {
	t.Helper()
	ft := newFakeTelegram(t)
	repos := repotest.NewStore().Repositories()
	for i := range books {
		require.NoError(t, repos.Book.Create(&books[i]))
	}
	api, err := NewAPI("123:abc", ft.srv.URL, time.Second)
	require.NoError(t, err)

	b := New(Config{
		SiteURL:     "https://e-library.samduuf.uz/",
		PollTimeout: time.Second,
	}, api, repos.Book, prefixResolver("/uploads"))
	return b, ft
}

func textUpdate(id int, text string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: id, Message: &tgbotapi.Message{
		MessageID: id,
		From:      &tgbotapi.User{ID: 7, FirstName: "Ali"},
		Chat:      &tgbotapi.Chat{ID: 42, Type: "private"},
		Text:      text,
	}}
}

func replyButton(t *testing.T, call apiCall) map[string]interface{} {
	t.Helper()
	var markup struct {
		InlineKeyboard [][]map[string]interface{} `json:"inline_keyboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(call.Params["reply_markup"]), &markup))
	require.NotEmpty(t, markup.InlineKeyboard)
	require.NotEmpty(t, markup.InlineKeyboard[0])
	return markup.InlineKeyboard[0][0]
}

func TestNewAPIChecksToken(t *testing.T) {
	ft := newFakeTelegram(t)

	api, err := NewAPI("123:abc", ft.srv.URL, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "samduuf_library_bot", api.Self.UserName)
	assert.Len(t, ft.sent("getMe"), 1)
}

func TestStartGreeting(t *testing.T) {
	b, ft := newTestBot(t)

	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(1, "/start@SamduufBot")))

	msgs := ft.sent("sendMessage")
	require.Len(t, msgs, 1)
	assert.Equal(t, "42", msgs[0].Params["chat_id"])
	assert.Contains(t, msgs[0].Params["text"], "Assalomu alaykum, Ali!")
	assert.Equal(t, tgbotapi.ModeMarkdown, msgs[0].Params["parse_mode"])
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	b, ft := newTestBot(t)

	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(1, "/help")))
	assert.Empty(t, ft.sent("sendMessage"))
}

func TestSearchTooShort(t *testing.T) {
	b, ft := newTestBot(t, models.Book{Title: "Go", Author: "Pike", Category: models.BookCategoryTextbook})

	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(1, "Go")))

	msgs := ft.sent("sendMessage")
	require.Len(t, msgs, 1)
	assert.Equal(t, msgTooShort, msgs[0].Params["text"])
	assert.Empty(t, ft.sent("sendChatAction"))
}

func TestSearchNotFound(t *testing.T) {
	b, ft := newTestBot(t, models.Book{Title: "Go", Author: "Pike", Category: models.BookCategoryTextbook})

	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(1, "Navoiy")))

	msgs := ft.sent("sendMessage")
	require.Len(t, msgs, 1)
	assert.Equal(t, msgNotFound, msgs[0].Params["text"])

	actions := ft.sent("sendChatAction")
	require.Len(t, actions, 1)
	assert.Equal(t, tgbotapi.ChatTyping, actions[0].Params["action"])
}

func TestSearchReturnsAtMostFiveBooks(t *testing.T) {
	books := make([]models.Book, 0, 7)
	for i := 1; i <= 7; i++ {
		books = append(books, models.Book{
			Title:    fmt.Sprintf("Tarix_%d", i),
			Author:   "Karimov",
			Category: models.BookCategoryScientific,
		})
	}
	b, ft := newTestBot(t, books...)

	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(1, "tarix")))

	msgs := ft.sent("sendMessage")
	require.Len(t, msgs, MaxResults)
	first := msgs[0]
	assert.Contains(t, first.Params["text"], `*Tarix\_7*`)
	assert.Contains(t, first.Params["text"], "Karimov")

	button := replyButton(t, first)
	assert.Equal(t, msgReadButton, button["text"])
	assert.Equal(t, "https://e-library.samduuf.uz/book/7", button["url"])
}

func TestSearchMatchesSubjects(t *testing.T) {
	b, ft := newTestBot(t,
		models.Book{Title: "Boburnoma", Author: "Bobur", Category: models.BookCategoryLiterature, Subjects: "memuar,temuriylar"},
		models.Book{Title: "Algebra", Author: "Alimov", Category: models.BookCategoryTextbook, Subjects: "matematika"},
	)

	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(1, "Temuriylar")))

	msgs := ft.sent("sendMessage")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Params["text"], "Boburnoma")
	assert.NotContains(t, msgs[0].Params["text"], "Algebra")
}

func TestSearchSendsCoverPhoto(t *testing.T) {
	b, ft := newTestBot(t, models.Book{
		Title:      "Boburnoma",
		Author:     "Bobur",
		Category:   models.BookCategoryLiterature,
		CoverImage: "covers/2024/01/b.jpg",
	})

	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(1, "bobur")))

	photos := ft.sent("sendPhoto")
	require.Len(t, photos, 1)
	assert.Equal(t, "https://e-library.samduuf.uz/uploads/covers/2024/01/b.jpg", photos[0].Params["photo"])
	assert.Contains(t, photos[0].Params["caption"], "Boburnoma")
	assert.Equal(t, "https://e-library.samduuf.uz/book/1", replyButton(t, photos[0])["url"])
	assert.Empty(t, ft.sent("sendMessage"))
}

func TestSearchFallsBackToTextWhenPhotoFails(t *testing.T) {
	b, ft := newTestBot(t, models.Book{
		Title:      "Boburnoma",
		Author:     "Bobur",
		Category:   models.BookCategoryLiterature,
		CoverImage: "covers/b.jpg",
	})
	ft.rejectPhotos()

	require.NoError(t, b.HandleUpdate(context.Background(), textUpdate(1, "bobur")))

	assert.Len(t, ft.sent("sendPhoto"), 1)
	msgs := ft.sent("sendMessage")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Params["text"], "Boburnoma")
}

func TestPollAdvancesOffset(t *testing.T) {
	b, ft := newTestBot(t)
	ft.queue(textUpdate(10, "/start"), textUpdate(11, "ab"))

	require.NoError(t, b.Poll(context.Background()))
	require.NoError(t, b.Poll(context.Background()))

	polls := ft.sent("getUpdates")
	require.Len(t, polls, 2)
	assert.Empty(t, polls[0].Params["offset"])
	assert.Equal(t, "12", polls[1].Params["offset"])
	assert.Equal(t, "1", polls[1].Params["timeout"])
	assert.Len(t, ft.sent("sendMessage"), 2)
}

func TestSendPhotoReportsAPIError(t *testing.T) {
	b, ft := newTestBot(t)
	ft.rejectPhotos()

	err := b.sendPhoto(1, "https://x/y.jpg", "c", readButton("https://x/book/1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong file identifier")
}
