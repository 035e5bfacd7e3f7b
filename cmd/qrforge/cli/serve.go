package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BenTyson/qrforge-sub000/internal/auth"
	"github.com/BenTyson/qrforge-sub000/internal/server"
)

const banner = `
  ___  ____  ___
 / _ \|  _ \|  _| ___  _ _  __ _ ___
| (_) |    /|  _|/ _ \| '_|/ _' / -_)
 \__\_\_|\_\|_|  \___/|_|  \__, \___|
                           |___/
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the QRForge API server",
		Long:  "Start the HTTP server that exposes the QR code API, short-code redirects, and the management console API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging, CORS *)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dev {
		cfg.Logging.Level = "debug"
		cfg.Server.CORSOrigins = []string{"*"}
	}
	logger := newLogger(cfg.Logging)

	// 1. Open the record store and run migrations.
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("record store initialized", "driver", cfg.Store.Driver)

	// 2. Assemble the gatekeeper.
	authSvc := newAuthService(cfg, st, logger)
	sessions := auth.NewSessions(sessionSecret(cfg), cfg.Auth.SessionTTLDuration())

	// 3. Build and start the HTTP server.
	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		ShutdownTimeout: cfg.Server.ShutdownTimeoutDuration(),
		CORSOrigins:     cfg.Server.CORSOrigins,
		PublicRPM:       cfg.Limits.PublicPerMinute,
	}

	srv := server.New(srvCfg, st, authSvc, sessions, logger)

	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ OpenAPI:  http://%s:%d/openapi.json\n", host, port)
	fmt.Printf("→ Health:   http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}
