package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sessiond/internal/config"
	"sessiond/internal/httpapi"
	"sessiond/internal/registry"
	"sessiond/internal/session"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	// Flags with environment variable defaults
	addr := flag.String("addr", envOr("SESSIOND_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	modelsDir := flag.String("models-dir", envOr("SESSIOND_MODELS_DIR", "~/models/llm"), "Directory to scan for model files")
	defaultModel := flag.String("default-model", envOr("SESSIOND_DEFAULT_MODEL", ""), "Default model id when request omits model")
	maxNewTokens := flag.Int("max-new-tokens", envIntOr("SESSIOND_MAX_NEW_TOKENS", 0), "Default per-session token budget (0=builtin default)")
	systemPrompt := flag.String("system-prompt", envOr("SESSIOND_SYSTEM_PROMPT", ""), "Default system prompt")
	reasoning := flag.Bool("reasoning", false, "Default new sessions to the reasoning prompt dialect")
	serverBin := flag.String("server-bin", envOr("SESSIOND_SERVER_BIN", ""), "Path to a llama-server binary; empty uses the in-process engine")
	logLevel := flag.String("log-level", envOr("SESSIOND_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	configPath := flag.String("config", envOr("SESSIOND_CONFIG", ""), "Optional config file (yaml/json/toml); flags override it")
	chatTimeout := flag.Int64("chat-timeout", 0, "Per-chat timeout in seconds (0=disabled)")
	flag.Parse()

	var fileCfg config.Config
	if *configPath != "" {
		var err error
		fileCfg, err = config.Load(*configPath)
		if err != nil {
			l := zerolog.New(os.Stderr)
			l.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
	}
	if fileCfg.Addr != "" && *addr == ":8080" {
		*addr = fileCfg.Addr
	}
	if fileCfg.ModelsDir != "" && *modelsDir == "~/models/llm" {
		*modelsDir = fileCfg.ModelsDir
	}
	if *defaultModel == "" {
		*defaultModel = fileCfg.DefaultModel
	}
	if *maxNewTokens == 0 {
		*maxNewTokens = fileCfg.MaxNewTokens
	}
	if *systemPrompt == "" {
		*systemPrompt = fileCfg.SystemPrompt
	}
	if *serverBin == "" {
		*serverBin = fileCfg.ServerBin
	}
	if fileCfg.LogLevel != "" && *logLevel == "info" {
		*logLevel = fileCfg.LogLevel
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()

	reg, err := registry.LoadDir(*modelsDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", *modelsDir).Msg("failed to load models")
	}

	mgr := session.NewWithConfig(session.ManagerConfig{
		Registry:     reg,
		DefaultModel: *defaultModel,
		MaxNewTokens: *maxNewTokens,
		SystemPrompt: *systemPrompt,
		Reasoning:    *reasoning || fileCfg.Reasoning,
		AudioOutput:  fileCfg.AudioOutput,
		KeepHistory:  fileCfg.KeepHistory,
		ServerBin:    *serverBin,
		ServerHost:   fileCfg.ServerHost,
		PortMin:      fileCfg.PortMin,
		PortMax:      fileCfg.PortMax,
		LlamaCtx:     fileCfg.LlamaCtx,
		LlamaThreads: fileCfg.LlamaThreads,
		Logger:       logger,
	})

	httpapi.SetLogger(logger)
	httpapi.SetChatTimeoutSeconds(*chatTimeout)
	if fileCfg.CORSEnabled {
		httpapi.SetCORSOptions(true, fileCfg.CORSOrigins, nil, nil)
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(mgr)
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", *addr).Str("models_dir", *modelsDir).Int("models", len(reg)).Msg("sessiond listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	baseCancel() // abort in-flight generations
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	for _, info := range mgr.List() {
		if err := mgr.Release(info.SessionID); err != nil {
			logger.Warn().Err(err).Int64("session", info.SessionID).Msg("release failed")
		}
	}
}
