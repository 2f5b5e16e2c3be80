package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/virtualmission/vlm/internal/api"
	"github.com/virtualmission/vlm/internal/config"
	"github.com/virtualmission/vlm/internal/converter"
	"github.com/virtualmission/vlm/internal/elevation"
	"github.com/virtualmission/vlm/internal/influx"
	"github.com/virtualmission/vlm/internal/logging"
	"github.com/virtualmission/vlm/internal/monitor"
	intOtel "github.com/virtualmission/vlm/internal/otel"
	"github.com/virtualmission/vlm/internal/storage"
)

const (
	programName     = "vlm-server"
	shutdownTimeout = 10 * time.Second
)

// app holds everything the service owns between startup and shutdown.
type app struct {
	log       *slog.Logger
	logs      *logging.SlogManager
	logFile   *os.File
	graylog   io.Closer
	otel      *intOtel.Provider
	archive   storage.Backend
	telemetry *influx.Manager
	monitor   *monitor.Service
	server    *http.Server
}

func setup(ctx context.Context, configDir string, console io.Writer) (*app, error) {
	sessionStart := time.Now()
	a := &app{logs: logging.NewSlogManager()}
	a.logs.SetConsole(console)
	a.logs.Setup(nil, "info", nil)
	a.log = a.logs.Logger()

	if err := config.Load(configDir); err != nil {
		a.log.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.log.Info("Loaded config", "path", viper.ConfigFileUsed())
	}

	logFile, err := logging.OpenLogFile(viper.GetString("logsDir"), programName, sessionStart)
	if err != nil {
		a.log.Error("Failed to create/open log file!", "error", err)
	} else {
		a.logFile = logFile
	}

	otelCfg := config.OTel()
	var otelLogProvider *sdklog.LoggerProvider
	if otelCfg.Enabled {
		var logWriter io.Writer
		if a.logFile != nil {
			logWriter = a.logFile
		}
		a.otel, err = intOtel.New(ctx, intOtel.Config{
			Enabled:      true,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logWriter,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			a.log.Error("Failed to initialize OTel provider", "error", err)
		} else {
			otelLogProvider = a.otel.LoggerProvider()
			a.log.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	if addr := viper.GetString("graylog.address"); addr != "" {
		gw, err := logging.NewGraylogWriter(addr)
		if err != nil {
			a.log.Error("Failed to connect to Graylog", "address", addr, "error", err)
		} else {
			a.graylog = gw
			a.logs.SetRemote(gw)
		}
	}

	var file io.Writer
	if a.logFile != nil {
		file = a.logFile
	}
	a.logs.Setup(file, viper.GetString("logLevel"), otelLogProvider)
	a.log = a.logs.Logger()
	if a.logFile != nil {
		a.log.Info("Logging to file", "path", a.logFile.Name())
	}

	storageCfg := config.Storage()
	a.archive, err = storage.NewBackend(storageCfg, a.log)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	if a.archive != nil {
		if err := a.archive.Init(); err != nil {
			a.archive = nil
			a.close(ctx)
			return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
		}
		a.log.Info("Conversion archive initialized", "type", storageCfg.Type)
	}

	deps := converter.Dependencies{
		Archive: a.archive,
		Logger:  a.log,
		Meter:   a.otel.Meter("github.com/virtualmission/vlm/cmd/vlm-server"),
	}

	a.telemetry = influx.NewManager(config.Influx(), a.log)
	switch err := a.telemetry.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
		a.telemetry = nil
	case err != nil:
		a.log.Error("Failed to connect to InfluxDB", "error", err)
		a.telemetry = nil
	default:
		deps.Telemetry = a.telemetry
	}

	corrector, err := elevation.FromConfig(config.Elevation(), a.log)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	deps.Corrector = corrector
	conv, err := converter.New(deps, config.MissionSettings())
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	monCfg := config.Monitor()
	monDeps := monitor.Dependencies{
		Cache:           corrector.Cache(),
		ElevationSource: conv.Source(),
		StatusFile:      monCfg.StatusFile,
		Interval:        monCfg.Interval,
		Logger:          a.log,
	}
	if p, ok := a.archive.(monitor.PendingReporter); ok {
		monDeps.Archive = p
	}
	if a.telemetry != nil {
		monDeps.Telemetry = a.telemetry
	}
	a.monitor = monitor.NewService(monDeps)

	srvCfg := config.Server()
	handler := api.NewServer(conv, a.archive, srvCfg, a.log)
	handler.SetMonitor(a.monitor)
	a.server = &http.Server{
		Addr:         srvCfg.Listen,
		Handler:      handler.Handler(),
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
	}
	a.log.Info("Using elevation API", "source", conv.Source())
	return a, nil
}

// close releases everything setup acquired, in reverse order.
func (a *app) close(ctx context.Context) {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.telemetry != nil {
		if err := a.telemetry.Close(); err != nil {
			a.log.Error("Failed to close InfluxDB telemetry", "error", err)
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.log.Error("Failed to close conversion archive", "error", err)
		}
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.log.Error("Failed to shut down OTel provider", "error", err)
		}
	}
	if a.graylog != nil {
		_ = a.graylog.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// serve accepts connections on l until ctx is done, then drains in-flight requests.
func (a *app) serve(ctx context.Context, l net.Listener) error {
	a.monitor.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(l)
	}()
	a.log.Info("Listening", "addr", l.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func run(ctx context.Context, args []string, console io.Writer) error {
	fs := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	fs.SetOutput(console)
	configDir := fs.StringP("config", "c", ".", "directory holding "+config.FileName)
	fs.StringP("listen", "l", ":5000", "address to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	config.SetDefaults()
	if err := viper.BindPFlag("server.listen", fs.Lookup("listen")); err != nil {
		return err
	}

	a, err := setup(ctx, *configDir, console)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	l, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err)
	}
	return a.serve(ctx, l)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		stop()
		os.Exit(1)
	}
}
