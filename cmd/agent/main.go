package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/personalagent/runtime/internal/actionexec"
	"github.com/personalagent/runtime/internal/clock"
	"github.com/personalagent/runtime/internal/config"
	"github.com/personalagent/runtime/internal/events"
	"github.com/personalagent/runtime/internal/governance"
	"github.com/personalagent/runtime/internal/httpapi"
	"github.com/personalagent/runtime/internal/idgen"
	"github.com/personalagent/runtime/internal/modelregistry"
	"github.com/personalagent/runtime/internal/scheduler"
	"github.com/personalagent/runtime/internal/schedcmd"
	"github.com/personalagent/runtime/internal/security"
	"github.com/personalagent/runtime/internal/sessions"
	"github.com/personalagent/runtime/internal/store/sqlite"
	"github.com/personalagent/runtime/internal/turns"
)

// architectureVersion and ontologyVersion are injected by release workflows
// via -ldflags, mirroring the teacher's buildVersion pattern in
// cmd/sentinel/cli.go.
var (
	architectureVersion = "dev"
	ontologyVersion     = "dev"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "-v", "--version", "version":
			slog.Info("personal-agent version", "architecture", architectureVersion, "ontology", ontologyVersion)
			return 0
		}
	}
	return serve()
}

func serve() int {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("config load failed", "err", err)
		return 1
	}
	initLogger()

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		slog.Error("store open failed", "err", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	c := clock.Real{}
	hub := events.NewHub()
	sessionLocks := sessions.New()

	governanceSvc := governance.New(st, st, c)
	executor := actionexec.New(governanceSvc, st, slog.Default())
	lane := schedcmd.New(st, c)
	dispatchLoop := scheduler.New(st, executor, lane, scheduler.Options{
		Clock:  c,
		Logger: slog.Default(),
		Hub:    hub,
	})
	dispatchLoop.Start(context.Background())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dispatchLoop.Stop(stopCtx)
	}()

	models := modelAdapter{registry: modelregistry.New(cfg)}
	pipeline := turns.New(st, st, st, models, cfg.Agents, c, sessionLocks, hub)

	guard := security.New(os.Getenv("AGENT_AUTH_TOKEN"), allowedOrigins(), security.ParseCookieSecurePolicy(os.Getenv("AGENT_COOKIE_SECURE")))

	mux := http.NewServeMux()
	httpapi.Register(mux, httpapi.Config{
		Guard:               guard,
		Channels:            st,
		Sessions:            st,
		Pipeline:            pipeline,
		Hub:                 hub,
		IDs:                 idgen.UUIDGenerator{},
		Clock:               c,
		Status:              dispatchLoop,
		OntologyVersion:     ontologyVersion,
		ArchitectureVersion: architectureVersion,
		Branch:              os.Getenv("AGENT_BUILD_BRANCH"),
	})

	return run(cfg, mux)
}

// modelAdapter satisfies turns.ModelResolver by re-exposing
// modelregistry.Registry's structurally-identical ModelHandle under
// turns' own interface. A plain assignment of the method value can't
// bridge this: Go matches ModelResolver's return type against the
// declared return type of Resolve, not against what that type happens to
// implement, so the two packages' distinct ModelHandle interfaces need a
// one-line seam even though every concrete handle already satisfies both.
type modelAdapter struct {
	registry *modelregistry.Registry
}

func (a modelAdapter) Resolve(ctx context.Context, provider, modelID string) (turns.ModelHandle, error) {
	return a.registry.Resolve(ctx, provider, modelID)
}

func allowedOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("AGENT_ALLOWED_ORIGINS"))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func run(cfg config.Config, mux *http.ServeMux) int {
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      requestLog(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE turn streams may run indefinitely
		IdleTimeout:  120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-shutdownCh
		slog.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}()

	slog.Info("personal-agent starting", "listen", server.Addr, "db", cfg.DBPath)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("personal-agent stopped")
	return 0
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		slog.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start).Truncate(time.Millisecond))
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code
// while still exposing http.Flusher to the SSE handler via Unwrap.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying ResponseWriter so http.ResponseController
// (and direct type assertions for http.Flusher) can see through the wrapper.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func initLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(os.Getenv("AGENT_LOG_LEVEL"))) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
