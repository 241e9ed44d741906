package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"allsidestg/internal/apperr"
	"allsidestg/internal/config"
	"allsidestg/internal/logger"
)

type sentMessage struct {
	chatID    string
	text      string
	parseMode string
}

type fakeBotAPI struct {
	mu       sync.Mutex
	sent     []sentMessage
	failSend bool
}

func (f *fakeBotAPI) handler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"allsides_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if f.failSend {
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)

			return
		}

		f.mu.Lock()
		f.sent = append(f.sent, sentMessage{
			chatID:    r.Form.Get("chat_id"),
			text:      r.Form.Get("text"),
			parseMode: r.Form.Get("parse_mode"),
		})
		f.mu.Unlock()

		fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100,"type":"channel"}}}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestTelegram(t *testing.T, admin string) (*Telegram, *fakeBotAPI) {
	t.Helper()

	fake := &fakeBotAPI{}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	tg, err := NewTelegram(config.TelegramConfig{
		Secret:      "123:abc",
		Channel:     "@allsides",
		Admin:       admin,
		APIEndpoint: srv.URL + "/bot%s/%s",
	})
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}

	return tg, fake
}

func TestTelegram_Publish(t *testing.T) {
	tg, fake := newTestTelegram(t, "42")

	if err := tg.Publish(context.Background(), "<b>Title</b>"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(fake.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(fake.sent))
	}

	got := fake.sent[0]
	if got.chatID != "@allsides" || got.text != "<b>Title</b>" || got.parseMode != "HTML" {
		t.Errorf("unexpected message: %+v", got)
	}
}

func TestTelegram_NotifyAdmin(t *testing.T) {
	tg, fake := newTestTelegram(t, "42")

	long := strings.Repeat("é", MaxMessageRunes+100)
	if err := tg.NotifyAdmin(context.Background(), long); err != nil {
		t.Fatalf("NotifyAdmin: %v", err)
	}

	got := fake.sent[0]
	if got.chatID != "42" || got.parseMode != "" {
		t.Errorf("unexpected message target: %+v", got)
	}

	if n := utf8.RuneCountInString(got.text); n != MaxMessageRunes {
		t.Errorf("admin message has %d runes, want %d", n, MaxMessageRunes)
	}
}

func TestTelegram_NotifyAdminWithoutAdmin(t *testing.T) {
	tg, fake := newTestTelegram(t, "")

	if err := tg.NotifyAdmin(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}

	if len(fake.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(fake.sent))
	}
}

func TestTelegram_ErrorsAreNetworkKind(t *testing.T) {
	tg, fake := newTestTelegram(t, "42")
	fake.failSend = true

	err := tg.Publish(context.Background(), "x")
	if !errors.Is(err, apperr.ErrNetwork) {
		t.Errorf("Publish error = %v, want network error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake.failSend = false

	err = tg.Publish(ctx, "x")
	if !errors.Is(err, apperr.ErrNetwork) || !errors.Is(err, context.Canceled) {
		t.Errorf("Publish on cancelled ctx = %v", err)
	}

	if len(fake.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(fake.sent))
	}
}

func TestNewTelegram_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	}))
	defer srv.Close()

	_, err := NewTelegram(config.TelegramConfig{Secret: "bad", APIEndpoint: srv.URL + "/bot%s/%s"})
	if apperr.KindOf(err) != apperr.KindNetwork {
		t.Errorf("NewTelegram error = %v, want network kind", err)
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer

	n := NewLog(logger.New(&buf, "info", "text"))

	if err := n.Publish(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}

	if err := n.NotifyAdmin(context.Background(), "oops"); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "oops") {
		t.Errorf("log output missing messages: %q", out)
	}
}
