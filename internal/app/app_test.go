package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepulse/internal/analysis"
	"tradepulse/internal/config"
	"tradepulse/internal/services"
	ws "tradepulse/internal/websocket"
)

type okValidator struct{}

func (okValidator) Validate(ctx context.Context, stockCode string) analysis.PreparationResult {
	return analysis.PreparationResult{
		IsValid:    true,
		StockName:  "Apple Inc.",
		MarketType: analysis.MarketForeign,
	}
}

// fakeEngine emits canned progress and returns a canned outcome,
// optionally after a delay to mimic a long run
type fakeEngine struct {
	delay    time.Duration
	emit     []analysis.ProgressEvent
	state    analysis.State
	decision interface{}
}

func (f *fakeEngine) Run(ctx context.Context, stockCode, analysisDate string, analysts []string, cfg analysis.ExecutionConfig, onProgress func(analysis.ProgressEvent)) (analysis.State, interface{}, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	for _, ev := range f.emit {
		onProgress(ev)
	}
	return f.state, f.decision, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			AnalysisTimeout: time.Minute,
		},
		Security: config.SecurityConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

func newTestApp(t *testing.T, eng analysis.Engine) *Application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := ws.NewHub(logger)
	hub.Start()
	t.Cleanup(hub.Stop)

	orch := analysis.NewOrchestrator(okValidator{}, eng, services.NewHubSink(hub), logger)

	app := &Application{
		Config:          testConfig(),
		Logger:          logger,
		Hub:             hub,
		AnalysisService: services.NewAnalysisService(orch, nil, logger),
	}
	app.upgrader = websocket.Upgrader{CheckOrigin: app.checkOrigin}
	app.setupRouter()
	return app
}

func dialSocket(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type socketFrame struct {
	Type    string                 `json:"type"`
	Data    map[string]interface{} `json:"data"`
	Success *bool                  `json:"success"`
	Error   string                 `json:"error"`
}

func readSocketFrame(t *testing.T, conn *websocket.Conn) socketFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var fr socketFrame
	require.NoError(t, conn.ReadJSON(&fr))
	return fr
}

func TestAnalysisSocketDeliversResultAfterAllProgress(t *testing.T) {
	for _, delay := range []time.Duration{0, 50 * time.Millisecond} {
		t.Run(fmt.Sprintf("engine delay %s", delay), func(t *testing.T) {
			eng := &fakeEngine{
				delay: delay,
				emit: []analysis.ProgressEvent{
					{Message: "stage one", Step: 1, TotalSteps: 2},
					{Message: "stage two", Step: 2, TotalSteps: 2},
				},
				state:    analysis.State{},
				decision: "BUY",
			}
			app := newTestApp(t, eng)
			srv := httptest.NewServer(app.Router)
			defer srv.Close()

			conn := dialSocket(t, srv, "/ws/analysis")
			require.NoError(t, conn.WriteJSON(map[string]interface{}{"stock_code": "AAPL"}))

			var frames []socketFrame
			for {
				fr := readSocketFrame(t, conn)
				frames = append(frames, fr)
				if fr.Type == ws.TypeResult {
					break
				}
			}

			// Greeting first, then every progress frame, the result
			// strictly last: preparation, start, two engine stages,
			// completion
			require.Len(t, frames, 7)
			assert.Equal(t, ws.TypeConnection, frames[0].Type)
			progress := frames[1 : len(frames)-1]
			for _, fr := range progress {
				assert.Equal(t, ws.TypeProgress, fr.Type)
			}
			assert.Contains(t, progress[len(progress)-1].Data["message"], "analysis complete")

			result := frames[len(frames)-1]
			require.NotNil(t, result.Success)
			assert.True(t, *result.Success)
			assert.Equal(t, "BUY", result.Data["decision"])
		})
	}
}

func TestAnalysisSocketRejectsMalformedFirstFrame(t *testing.T) {
	app := newTestApp(t, &fakeEngine{state: analysis.State{}, decision: "HOLD"})
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	conn := dialSocket(t, srv, "/ws/analysis")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	fr := readSocketFrame(t, conn)
	assert.Equal(t, ws.TypeError, fr.Type)
	require.NotNil(t, fr.Success)
	assert.False(t, *fr.Success)
	assert.Contains(t, fr.Error, "invalid analysis request")

	// The connection closes after the error frame
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestProgressSocketStreamsBroadcasts(t *testing.T) {
	app := newTestApp(t, &fakeEngine{state: analysis.State{}, decision: "HOLD"})
	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	conn := dialSocket(t, srv, "/ws")
	greeting := readSocketFrame(t, conn)
	assert.Equal(t, ws.TypeConnection, greeting.Type)

	app.Hub.BroadcastProgress("market analyst working", 2, 10)

	fr := readSocketFrame(t, conn)
	require.Equal(t, ws.TypeProgress, fr.Type)
	assert.Equal(t, "market analyst working", fr.Data["message"])
	assert.Equal(t, float64(2), fr.Data["step"])
	assert.Equal(t, float64(10), fr.Data["total_steps"])
}
