package importer_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"allsidestg/internal/config"
	"allsidestg/internal/crawler"
	"allsidestg/internal/formatter"
	"allsidestg/internal/importer"
	"allsidestg/internal/metrics"
	"allsidestg/internal/notifier"
	"allsidestg/internal/state"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// botAPI answers getMe and records sendMessage calls.
type botAPI struct {
	mu    sync.Mutex
	texts map[string][]string // chat_id -> texts
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	w.Header().Set("Content-Type", "application/json")

	if strings.HasSuffix(r.URL.Path, "/getMe") {
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"bot"}}`)

		return
	}

	b.mu.Lock()
	b.texts[r.Form.Get("chat_id")] = append(b.texts[r.Form.Get("chat_id")], r.Form.Get("text"))
	b.mu.Unlock()

	fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"channel"}}}`)
}

func TestImporterFlow_SQLiteTelegram(t *testing.T) {
	ctx := context.Background()

	api := &botAPI{texts: map[string][]string{}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	tg, err := notifier.NewTelegram(config.TelegramConfig{
		Secret:      "1:x",
		Channel:     "@allsides",
		Admin:       "@ops",
		APIEndpoint: srv.URL + "/bot%s/%s",
	})
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "stories.sqlite")

	store, err := state.Open(ctx, config.StoreConfig{Backend: "sqlite", Path: dbPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	m := metrics.New()

	newImporter := func(s state.Store) *importer.Importer {
		return importer.New(importer.Deps{
			Source:    crawler.NewClient(crawler.NewFileFetcher("testdata")),
			Formatter: formatter.New(formatter.ExcerptTakeWhile),
			Store:     s,
			Notifier:  tg,
			Recorder:  m,
		}, importer.Options{MainURL: crawler.MainPageURL})
	}

	report, err := newImporter(store).Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if len(report.Published) != 3 {
		t.Fatalf("published %d, want 3", len(report.Published))
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// A restart must not repost anything.
	store, err = state.Open(ctx, config.StoreConfig{Backend: "sqlite", Path: dbPath})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	report, err = newImporter(store).Tick(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Published) != 0 || report.Skipped != 3 {
		t.Errorf("after restart: %+v", report)
	}

	channel := api.texts["@allsides"]
	if len(channel) != 3 {
		t.Fatalf("channel received %d messages, want 3", len(channel))
	}

	if !strings.Contains(channel[2], "Cuomo") {
		t.Errorf("last message is not the newest story:\n%s", channel[2])
	}

	if len(api.texts["@ops"]) != 0 {
		t.Errorf("unexpected admin messages: %v", api.texts["@ops"])
	}

	expected := `
# HELP allsidestg_stories_published_total Stories published to the channel.
# TYPE allsidestg_stories_published_total counter
allsidestg_stories_published_total 3
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "allsidestg_stories_published_total"); err != nil {
		t.Errorf("metrics: %v", err)
	}

	recs, err := store.List(ctx)
	if err != nil || len(recs) != 3 {
		t.Errorf("List = %d records, %v", len(recs), err)
	}
}
