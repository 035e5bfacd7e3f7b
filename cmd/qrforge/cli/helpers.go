package cli

import (
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/BenTyson/qrforge-sub000/internal/auth"
	"github.com/BenTyson/qrforge-sub000/internal/config"
	"github.com/BenTyson/qrforge-sub000/internal/ratelimit"
	"github.com/BenTyson/qrforge-sub000/internal/store"
)

// loadConfig reads qrforge.yaml (or the --config path) over the defaults.
func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("qrforge.yaml"); err == nil {
			path = "qrforge.yaml"
		}
	}
	return config.Load(path)
}

// resolveDataDir returns the data directory from the --data-dir flag,
// QRFORGE_DATA_DIR env var, or ~/.qrforge as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("QRFORGE_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.qrforge"
}

// openStore opens the record store described by the config, defaulting to a
// SQLite database under the data directory.
func openStore(cfg config.Config) (*store.Store, error) {
	sc := store.Config{
		Driver:  cfg.Store.Driver,
		DSN:     cfg.Store.DSN,
		DataDir: cfg.Store.DataDir,
	}
	if sc.Driver == "" || sc.Driver == "sqlite" {
		if sc.DataDir == "" {
			sc.DataDir = resolveDataDir()
		}
		if err := os.MkdirAll(sc.DataDir, 0o755); err != nil {
			return nil, err
		}
	}
	return store.New(sc)
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newAuthService assembles the gatekeeper: shared Redis counter when
// configured, per-process fallback counter always.
func newAuthService(cfg config.Config, st *store.Store, logger *slog.Logger) *auth.Service {
	var primary ratelimit.Counter
	if addr := cfg.Redis.Addr; addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		primary = ratelimit.NewRedisCounter(client)
		logger.Info("rate limit counter using redis", "addr", addr)
	} else {
		logger.Info("rate limit counter running in-process; set redis.addr to share across replicas")
	}

	limiter := ratelimit.New(ratelimit.Config{
		Limit:   cfg.Limits.RequestsPerMinute,
		Timeout: cfg.Limits.StoreTimeoutDuration(),
	}, primary, ratelimit.NewMemoryCounter(nil), logger)

	return auth.NewService(st, limiter, auth.NewQuota(st), logger)
}

// sessionSecret returns the management session secret from config or env,
// with a development fallback.
func sessionSecret(cfg config.Config) string {
	if s := viper.GetString("auth.session_secret"); s != "" {
		return s
	}
	if cfg.Auth.SessionSecret != "" {
		return cfg.Auth.SessionSecret
	}
	return "qrforge-dev-secret-change-me"
}
