package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MomentumRotator/internal/model"
	"MomentumRotator/internal/report"
)

func f(v float64) *float64 { return &v }

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	require.NoError(t, n.Send("hi"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hi", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, true, got["disable_web_page_preview"])
}

func TestTelegramNotifier_SendPlainTruncated(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	n.ParseMode = ParseModeNone
	require.NoError(t, n.Send(strings.Repeat("é", maxMessageLen+10)))

	_, hasMode := got["parse_mode"]
	assert.False(t, hasMode)
	text, _ := got["text"].(string)
	assert.Equal(t, maxMessageLen, len([]rune(text)))
	assert.True(t, strings.HasSuffix(text, "…"))
}

func TestTelegramNotifier_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	err := n.Send("hi")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Request: chat not found", apiErr.Description)
	assert.False(t, apiErr.Temporary())
}

func TestTelegramNotifier_SendWithRetry(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if r.URL.Path == "/botBAD/sendMessage" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"description":"Bad Request"}`))
			return
		}
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"ok":false,"description":"Too Many Requests","parameters":{"retry_after":0}}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	require.NoError(t, n.SendWithRetry(context.Background(), "hi", 2))
	assert.Equal(t, 2, calls)

	calls = 0
	bad := NewTelegramNotifier("BAD", "42", "", zerolog.Nop())
	bad.APIBase = srv.URL
	err := bad.SendWithRetry(context.Background(), "hi", 3)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestTelegramNotifier_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	err := n.Send("hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestStartPolling_DispatchesOwnChatOnly(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		served  bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if served {
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			served = true
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":1,"message":{"text":"/status","chat":{"id":42}}},
				{"update_id":2,"message":{"text":"/park","chat":{"id":7}}}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			replies = append(replies, body["text"])
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = srv.URL

	var handled []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(cmd string) string {
			handled = append(handled, cmd)
			return "ok " + cmd
		})
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(replies) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"/status"}, handled)
	assert.Equal(t, []string{"ok /status"}, replies)
}

func TestFormatDecision(t *testing.T) {
	assert.Contains(t, FormatDecision(nil), "No decision yet")

	d := &model.DecisionOutput{
		Time:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Mode:         model.ModePaper,
		Connection:   model.ConnectionOK,
		State:        model.StateSwitchBlocked,
		Reasons:      []model.Reason{model.ReasonNetEdgeTooSmall},
		CurrentAsset: "USDT",
		Leader:       "SOL",
		EdgePct:      f(0.5),
		NetEdgePct:   f(0.21),
		CostBps:      29,
		ConfirmK:     2,
		ConfirmN:     3,
		MaxSwitches:  12,
		Equity:       10000,
		Leaderboard: []model.LeaderboardRow{
			{Rank: 1, Asset: "SOL", Score: f(0.005), Signal: "LEADER"},
			{Asset: "NEW", Signal: "WARMUP"},
		},
	}
	msg := FormatDecision(d)
	assert.Contains(t, msg, "SWITCH_BLOCKED")
	assert.Contains(t, msg, "NET_EDGE_TOO_SMALL")
	assert.Contains(t, msg, "confirm 2/3")
	assert.Contains(t, msg, "+0.21%")
	assert.Contains(t, msg, "1. SOL score +0.0050 LEADER")
	assert.Contains(t, msg, "-. NEW score warming up WARMUP")
	assert.Contains(t, msg, "Data age: n/a")
}

func TestFormatSwitchAndSummary(t *testing.T) {
	park := FormatSwitch(&model.SwitchRecord{FromAsset: "BTC", ToAsset: "USDT", Reason: model.SwitchReasonManualPark, EquityAfter: 9900})
	assert.Contains(t, park, "MANUAL_PARK")
	assert.NotContains(t, park, "Edge:")

	s := report.Summary{StartEquity: 10000, EndEquity: 10100, PnL: 100, PnLPct: 1, Switches: 3,
		TopBlockReasons: []report.ReasonCount{{Reason: "CONFIRMING", Count: 4}}}
	msg := FormatSummary(s)
	assert.Contains(t, msg, "PnL: +100.00 (+1.00%)")
	assert.Contains(t, msg, "CONFIRMING × 4")
}
