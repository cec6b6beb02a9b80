package alert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type capturedRequest struct {
	Path string
	Body sendMessageRequest
}

func newTelegramServer(t *testing.T, status int, reply string) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		reqs = append(reqs, capturedRequest{Path: r.URL.Path, Body: body})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func TestDispatchSendsFormattedMessage(t *testing.T) {
	t.Parallel()

	srv, requests := newTelegramServer(t, http.StatusOK, `{"ok":true}`)
	tg := New(Config{BotToken: "123:abc", ChatID: "42", APIBase: srv.URL, ParseMode: "HTML"}, zap.NewNop())

	err := tg.Dispatch(context.Background(), "contains Early Access", "https://x.com/u/status/222")
	require.NoError(t, err)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", reqs[0].Path)
	assert.Equal(t, "42", reqs[0].Body.ChatID)
	assert.Equal(t, "HTML", reqs[0].Body.ParseMode)
	assert.False(t, reqs[0].Body.DisableWebPagePreview)
	assert.Equal(t, "🚨 新推文警报\ncontains Early Access\n🔗 https://x.com/u/status/222", reqs[0].Body.Text)
}

func TestDispatchEscapesHTML(t *testing.T) {
	t.Parallel()

	srv, requests := newTelegramServer(t, http.StatusOK, `{"ok":true}`)
	tg := New(Config{BotToken: "t", ChatID: "c", APIBase: srv.URL, ParseMode: "HTML"}, nil)

	require.NoError(t, tg.Dispatch(context.Background(), "a < b & c", ""))
	assert.Equal(t, "a &lt; b &amp; c", requests()[0].Body.Text)
}

func TestDispatchRejectedIsDeliveryError(t *testing.T) {
	t.Parallel()

	srv, _ := newTelegramServer(t, http.StatusBadRequest, `{"ok":false,"description":"Bad Request: chat not found"}`)
	tg := New(Config{BotToken: "t", ChatID: "c", APIBase: srv.URL}, nil)

	err := tg.Dispatch(context.Background(), "x", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDelivery)

	var de *DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusBadRequest, de.Status)
	assert.Equal(t, "Bad Request: chat not found", de.Description)
}

func TestDispatchOkFalseWith200IsDeliveryError(t *testing.T) {
	t.Parallel()

	srv, _ := newTelegramServer(t, http.StatusOK, `{"ok":false,"description":"flood"}`)
	tg := New(Config{BotToken: "t", ChatID: "c", APIBase: srv.URL}, nil)

	assert.ErrorIs(t, tg.Dispatch(context.Background(), "x", ""), ErrDelivery)
}

func TestDispatchUnreachableRedactsToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	tg := New(Config{BotToken: "secret-token", ChatID: "c", APIBase: base, Timeout: time.Second}, nil)
	err := tg.Dispatch(context.Background(), "x", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDelivery)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestDispatchUnconfiguredIsNoOpWithWarning(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	tg := New(Config{APIBase: "http://127.0.0.1:1"}, zap.New(core))
	assert.False(t, tg.Configured())

	require.NoError(t, tg.Dispatch(context.Background(), "x", "https://x.com/u/status/1"))
	require.NoError(t, tg.Dispatch(context.Background(), "y", ""))
	assert.Equal(t, 2, logs.FilterMessageSnippet("not set").Len())
}

func TestNotifySendsRawText(t *testing.T) {
	t.Parallel()

	srv, requests := newTelegramServer(t, http.StatusOK, `{"ok":true}`)
	tg := New(Config{BotToken: "t", ChatID: "c", APIBase: srv.URL + "/"}, nil)

	notice := FormatStartupNotice("NodeMinerDPN", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), []string{"a", "b"})
	require.NoError(t, tg.Notify(context.Background(), notice))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/bott/sendMessage", reqs[0].Path)
	assert.True(t, strings.HasPrefix(reqs[0].Body.Text, "🤖 监控已启动\n对象: @NodeMinerDPN\n"))
	assert.Contains(t, reqs[0].Body.Text, "2026-01-02 03:04:05 UTC")
	assert.Contains(t, reqs[0].Body.Text, "关键词: a、b")
}

func TestDispatchHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	srv, requests := newTelegramServer(t, http.StatusOK, `{"ok":true}`)
	tg := New(Config{BotToken: "t", ChatID: "c", APIBase: srv.URL, RatePerSecond: 0.001}, nil)

	require.NoError(t, tg.Dispatch(context.Background(), "first", ""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tg.Dispatch(ctx, "second", ""), ErrDelivery)
	assert.Len(t, requests(), 1)
}
