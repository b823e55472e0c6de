package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pavelanni/careerprep/internal/handler"
	appI18n "github.com/pavelanni/careerprep/internal/i18n"
	"github.com/pavelanni/careerprep/internal/llm"
	"github.com/pavelanni/careerprep/internal/llm/prompts"
	"github.com/pavelanni/careerprep/internal/metrics"
	"github.com/pavelanni/careerprep/internal/store"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "careerprep",
		Short: "Career preparation API backed by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, userCmd(), historyCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `careerprep --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "careerprep.db", "SQLite database path")
	f.String("llm-provider", llm.ProviderOpenAI, "Completion provider (openai, gemini)")
	f.String("llm-url", "", "Custom API base URL (e.g. http://localhost:11434/v1 for Ollama)")
	f.String("llm-key", "", "API key for the completion provider (gemini falls back to GEMINI_API_KEY)")
	f.String("llm-model", "", "Model name (provider default when empty)")
	f.Duration("llm-timeout", 60*time.Second, "Timeout for a single completion call")
	f.Bool("llm-structured", true, "Request JSON-schema structured output where supported")
	f.Bool("llm-check", true, "Verify the completion endpoint at startup")
	f.Int("exam-questions", 5, "Questions per generated exam")
	f.String("prompts-dir", "", "Directory holding templates/*.txt prompt overrides")
	f.StringP("lang", "l", "en", "Default message language (en, ru)")
	f.Float64("rate-limit", 20, "Completion-backed requests per minute per user (0 disables)")
	f.Int("rate-burst", 5, "Burst size for the per-user rate limit")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Duration("session-ttl", store.DefaultAuthSessionTTL, "Lifetime of a login token")
	addLogFlags(cmd)
	return cmd
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("log-file", "", "Also write logs to this file, rotated by size")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if path := v.GetString("log-file"); path != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(out, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("CAREERPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("careerprep")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/careerprep")
	v.AddConfigPath("/etc/careerprep")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// loadPrompts uses the embedded templates unless dir overrides them.
func loadPrompts(dir string) error {
	var fsys fs.FS = prompts.Templates
	if dir != "" {
		fsys = os.DirFS(dir)
	}
	return prompts.Load(fsys)
}

func newLLMClient(ctx context.Context, v *viper.Viper) (*llm.Client, error) {
	cfg := llm.Config{
		Provider:         strings.ToLower(strings.TrimSpace(v.GetString("llm-provider"))),
		BaseURL:          v.GetString("llm-url"),
		APIKey:           v.GetString("llm-key"),
		Model:            v.GetString("llm-model"),
		Timeout:          v.GetDuration("llm-timeout"),
		StructuredOutput: v.GetBool("llm-structured"),
	}
	if cfg.APIKey == "" && cfg.Provider == llm.ProviderGemini {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return llm.New(ctx, cfg)
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if n, err := db.CleanupExpiredSessions(ctx); err != nil {
		slog.Warn("cleanup expired sessions", "error", err)
	} else if n > 0 {
		slog.Info("removed expired logins", "count", n)
	}

	if err := loadPrompts(v.GetString("prompts-dir")); err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	metrics.Init()

	llmClient, err := newLLMClient(ctx, v)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if v.GetBool("llm-check") {
		if err := llmClient.Ping(ctx); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "provider", llmClient.Provider(), "model", llmClient.Model())
	}

	h := handler.New(db, llmClient, handler.Config{
		SecureCookies: v.GetBool("secure-cookies"),
		SessionTTL:    v.GetDuration("session-ttl"),
		RateLimit:     v.GetFloat64("rate-limit"),
		RateBurst:     v.GetInt("rate-burst"),
		QuestionCount: v.GetInt("exam-questions"),
	})
	defer h.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"provider", llmClient.Provider(),
			"model", llmClient.Model(),
			"lang", lang,
			"exam_questions", v.GetInt("exam-questions"),
			"rate_limit", v.GetFloat64("rate-limit"),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
