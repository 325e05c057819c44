// Package cli builds the command line of the service binaries.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ecommerce-stack/internal/adapter"
	"ecommerce-stack/internal/config"
	"ecommerce-stack/internal/logging"
	"ecommerce-stack/internal/server"
	"ecommerce-stack/internal/service"
)

// run is replaced in tests.
var run = Serve

// Execute runs the service command for svc and exits non-zero on failure.
func Execute(svc service.Config) {
	gin.SetMode(gin.ReleaseMode)
	if err := NewServiceCommand(svc).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// NewServiceCommand returns the root command of svc's binary. Flags override
// environment variables, which override a .env file, which overrides the
// service defaults.
func NewServiceCommand(svc service.Config) *cobra.Command {
	v := config.New(svc)
	var envFile string

	cmd := &cobra.Command{
		Use:          svc.Name,
		Short:        fmt.Sprintf("Run the %s", svc.Title),
		Long:         fmt.Sprintf("Run the %s as a standalone HTTP server, or as an AWS Lambda handler behind API Gateway when AWS_LAMBDA_RUNTIME_API is set.", svc.Title),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadDotEnv(v, envFile); err != nil {
				return err
			}
			settings, err := config.Load(v, svc)
			if err != nil {
				return err
			}
			return run(cmd.Context(), settings)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to read when present")
	flags.Int("port", svc.DefaultPort, "standalone listen port (env PORT)")
	flags.String("log-level", "info", "debug, info, warn or error (env LOG_LEVEL)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address in standalone mode (env METRICS_ADDR)")
	flags.String("base-path", svc.BasePath, "path prefix stripped from Lambda requests (env BASE_PATH)")
	flags.Bool("lambda", false, "run as a Lambda handler")

	_ = v.BindPFlag(config.KeyPort, flags.Lookup("port"))
	_ = v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = v.BindPFlag(config.KeyMetricsAddr, flags.Lookup("metrics-addr"))
	_ = v.BindPFlag(config.KeyBasePath, flags.Lookup("base-path"))
	_ = v.BindPFlag(config.KeyLambda, flags.Lookup("lambda"))

	return cmd
}

// Serve runs one service until ctx ends (standalone) or forever (Lambda).
func Serve(ctx context.Context, s config.Settings) error {
	log, err := logging.New(s.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("service", s.Service.Name))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app := service.New(s.Service, service.WithLogger(log), service.WithRegistry(reg))

	if s.Lambda {
		log.Info("starting lambda handler", zap.String("base_path", s.BasePath))
		lambda.Start(adapter.New(app, s.BasePath, adapter.WithLogger(log)).Invoke)
		return nil
	}

	listeners := []server.Listener{{Name: "http", Addr: s.Addr(), Handler: app}}
	if s.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.MetricsHandler())
		listeners = append(listeners, server.Listener{Name: "metrics", Addr: s.MetricsAddr, Handler: mux})
	}

	log.Info(fmt.Sprintf("%s running on port %d", s.Service.Title, s.Port))
	log.Info(fmt.Sprintf("Health check available at http://localhost:%d/health", s.Port))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx, log, listeners...)
}
