package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/harvest"
)

func TestMultiSkipsNil(t *testing.T) {
	var got []string
	rec := func(tag string) harvest.Notifier {
		return harvest.NotifierFunc(func(_ context.Context, n harvest.Notice) {
			got = append(got, tag+":"+n.Message)
		})
	}
	Multi{rec("a"), nil, rec("b")}.Notify(context.Background(), harvest.Notice{Message: "hi"})
	assert.Equal(t, []string{"a:hi", "b:hi"}, got)
}

func TestHubPublishesSessionEvent(t *testing.T) {
	h := events.NewHub()
	sub := h.Subscribe()
	defer h.Unsubscribe(sub)

	Hub{H: h}.Notify(context.Background(), harvest.Notice{
		Session: "tab-3", Kind: harvest.KindCrawl, Event: harvest.EventProgress, Message: "page 2/5",
	})

	var evt events.Event
	require.NoError(t, json.Unmarshal([]byte(<-sub), &evt))
	assert.Equal(t, "harvest.progress", evt.Type)
	assert.Equal(t, "tab-3", evt.Session)

	var n harvest.Notice
	require.NoError(t, json.Unmarshal(evt.Data, &n))
	assert.Equal(t, "page 2/5", n.Message)
	assert.Equal(t, harvest.KindCrawl, n.Kind)
}

// fakeBotAPI answers getMe and records sendMessage calls.
type fakeBotAPI struct {
	mu    sync.Mutex
	texts []string
	chats []string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"harvest","username":"harvest_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		f.mu.Lock()
		f.texts = append(f.texts, r.FormValue("text"))
		f.chats = append(f.chats, r.FormValue("chat_id"))
		f.mu.Unlock()
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
	default:
		http.NotFound(w, r)
	}
}

func TestTelegramSendsOnlyOutcomes(t *testing.T) {
	api := &fakeBotAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	tg, err := NewTelegramWithEndpoint("123:abc", 42, srv.URL+"/bot%s/%s")
	require.NoError(t, err)

	ctx := context.Background()
	tg.Notify(ctx, harvest.Notice{Kind: harvest.KindCrawl, Event: harvest.EventProgress, Message: "page 1/3"})
	tg.Notify(ctx, harvest.Notice{Kind: harvest.KindCrawl, Event: harvest.EventCompleted, Message: "pages 3 <done>"})
	tg.Notify(ctx, harvest.Notice{Kind: harvest.KindAutoFetch, Event: harvest.EventEmpty, Message: "nothing to do"})
	tg.Close()
	tg.Close()

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.texts, 2)
	assert.Equal(t, "✅ <b>Crawl</b>\npages 3 &lt;done&gt;", api.texts[0])
	assert.Equal(t, "📭 <b>Description fetch</b>\nnothing to do", api.texts[1])
	assert.Equal(t, []string{"42", "42"}, api.chats)
}

func TestTelegramBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	}))
	defer srv.Close()

	_, err := NewTelegramWithEndpoint("bad", 1, srv.URL+"/bot%s/%s")
	assert.Error(t, err)
}
