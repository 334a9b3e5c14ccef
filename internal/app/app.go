package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradepulse/internal/analysis"
	"tradepulse/internal/config"
	"tradepulse/internal/engine"
	"tradepulse/internal/exporter"
	"tradepulse/internal/infrastructure"
	customMiddleware "tradepulse/internal/middleware"
	"tradepulse/internal/preparer"
	"tradepulse/internal/services"
	handlers "tradepulse/internal/transport/http"
	ws "tradepulse/internal/websocket"
)

// Version is set at build time
var Version = "dev"

// Application is the composition root: configuration, services,
// router and HTTP server
type Application struct {
	Config          *config.Config
	Router          *chi.Mux
	Server          *http.Server
	Hub             *ws.Hub
	AnalysisService *services.AnalysisService
	Logger          *slog.Logger

	upgrader websocket.Upgrader
}

// NewApplication creates a fully wired application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port),
		slog.String("llm_provider", cfg.LLM.Provider))

	app := &Application{
		Config: cfg,
		Logger: logger,
	}
	app.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     app.checkOrigin,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices wires the hub, the collaborators and the
// orchestration stack
func (a *Application) initializeServices() {
	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.Hub = hub

	gate := preparer.NewGate(
		preparer.NewYahooPreparer(a.Logger),
		a.Config.Validation.Timeout,
		a.Logger,
	)

	chat := engine.NewOpenAIClient(a.Config.LLM.BaseURL, a.Config.LLM.APIKey)
	pipeline := engine.NewPipeline(chat, a.Logger)

	orchestrator := analysis.NewOrchestrator(gate, pipeline, services.NewHubSink(hub), a.Logger).
		WithProvider(analysis.ModelProvider{
			Name:       a.Config.LLM.Provider,
			DeepModel:  a.Config.LLM.DeepModel,
			QuickModel: a.Config.LLM.QuickModel,
		})

	var reportWriter services.ReportExporter
	if a.Config.Exports.Enabled {
		reportWriter = exporter.NewReportWriter(a.Config.Exports.Dir, a.Logger)
	}

	a.AnalysisService = services.NewAnalysisService(orchestrator, reportWriter, a.Logger)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware only; anything wrapping the ResponseWriter
	// breaks the websocket upgrade
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// WebSocket routes stay outside the full middleware group
	r.HandleFunc("/ws", a.handleProgressSocket)
	r.HandleFunc("/ws/analysis", a.handleAnalysisSocket)

	// Prometheus endpoint outside the group as well
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(render.SetContentType(render.ContentTypeJSON))

		analysisHandler := handlers.NewAnalysisHandler(a.AnalysisService, a.Logger)
		healthHandler := handlers.NewHealthHandler(Version, a.Hub, a.Logger)

		r.Route("/api", func(r chi.Router) {
			// Analysis runs are minutes-scale; give them their own timeout
			r.With(customMiddleware.Timeout(a.Config.Server.AnalysisTimeout, a.Logger)).
				Mount("/analysis", analysisHandler.Routes())
			r.Mount("/healthz", healthHandler.Routes())
		})
	})

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		// Long-running analysis responses need the write timeout off;
		// per-route timeouts bound them instead
		WriteTimeout: 0,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the server and blocks until shutdown
func (a *Application) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		a.Logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Hub.Stop()
	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	infrastructure.CloseLogFile()
	a.Logger.Info("application stopped")
	return nil
}

// checkOrigin validates the Origin header on websocket upgrades
func (a *Application) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients send no Origin
		return true
	}
	for _, allowed := range a.Config.Security.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// handleProgressSocket serves the progress-only stream: the subscriber
// joins the shared audience and receives every progress frame until it
// disconnects. Inbound frames are ignored.
func (a *Application) handleProgressSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Error("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	client := ws.NewClient(a.Hub, conn, a.Logger)
	a.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// handleAnalysisSocket serves the combined topology: the first inbound
// frame is the analysis request, progress frames stream over the same
// connection (shared audience), and a terminal result frame closes the
// exchange.
func (a *Application) handleAnalysisSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Error("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	var req analysis.Request
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	if err := conn.ReadJSON(&req); err != nil {
		a.Logger.Warn("invalid analysis socket request",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		conn.WriteJSON(map[string]interface{}{
			"type":    ws.TypeError,
			"success": false,
			"error":   "invalid analysis request: " + err.Error(),
		})
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	client := ws.NewClient(a.Hub, conn, a.Logger)
	a.Hub.Register(client)
	go client.WritePump()
	go client.ReadPump()

	// The run executes on this handler goroutine; a disconnect only
	// stops delivery, never the job
	result := a.AnalysisService.RunAnalysis(r.Context(), req)

	frame, err := json.Marshal(map[string]interface{}{
		"type":      ws.TypeResult,
		"success":   result.Success,
		"decision":  result.Decision,
		"data":      result,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		a.Logger.Error("failed to marshal result frame", slog.String("error", err.Error()))
		return
	}
	// The result rides the hub queue behind the run's progress
	// broadcasts, so it arrives after them
	a.Hub.SendToClient(client, frame)
}
