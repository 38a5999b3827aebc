package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ftl/tc1000/com"
	"github.com/ftl/tc1000/config"
	"github.com/ftl/tc1000/control"
	"github.com/ftl/tc1000/monitor"
	"github.com/ftl/tc1000/queue"
	"github.com/ftl/tc1000/serial"
)

const shutdownTimeout = 5 * time.Second

func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the temperature controller and keep the connection alive",
		Long: "Run scans the serial ports, connects to the temperature controller and logs its readings.\n" +
			"If http.listen is configured, the state is also available over HTTP and WebSocket and the\n" +
			"target temperature can be changed there.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, store, cfg, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			port, err := cmd.Flags().GetString("port")
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Serial.Port = port
			}
			listen, err := cmd.Flags().GetString("listen")
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.HTTP.Listen = listen
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runBridge(ctx, log, store, cfg)
		},
	}

	cmd.Flags().StringP("port", "p", "", "serial port to prefer (overrides serial.port)")
	cmd.Flags().String("listen", "", "address of the HTTP monitor, e.g. :8080 (overrides http.listen)")
	return cmd
}

func runBridge(ctx context.Context, log *zap.SugaredLogger, store *config.Store, cfg config.Config) error {
	bridge := queue.NewBridge()

	enumerator := serial.NewEnumerator(log.Named("serial"))
	listPorts := func() ([]string, error) {
		ports, err := enumerator.ListPorts()
		if err != nil {
			return nil, err
		}
		return serial.PreferMatching(ports, cfg.Serial.Match), nil
	}
	readTimeout := cfg.Serial.ReadTimeout
	open := func(portName string, baudRate int) (io.ReadWriteCloser, error) {
		return serial.Open(portName, baudRate, readTimeout)
	}

	manager := com.NewManager(open, log).WithStateCallback(func(state com.ConnectionState) {
		if state.Kind == com.Faulted {
			log.Warnw("Connection lost, scanning again", "port", state.Port, "reason", state.Reason, "session", state.SessionID)
		}
	})
	worker := com.NewWorker(manager, listPorts, bridge, log).
		WithBaudRate(cfg.Serial.Baud).
		WithReadTimeout(readTimeout).
		WithScanInterval(cfg.Serial.ScanInterval).
		WithPreferredPort(cfg.Serial.Port)
	if cfg.Trace.File != "" {
		traceFile, err := os.OpenFile(cfg.Trace.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer traceFile.Close()
		worker.WithTrace(traceFile)
	}

	session := control.NewSession(cfg.Control.InitialTarget, cfg.History.Size)
	consumer := control.NewConsumer(bridge, worker, session, log).
		WithLimits(cfg.Control.MinTarget, cfg.Control.MaxTarget).
		WithDisplay(newLogDisplay(log))

	store.WithSerialChangeCallback(func(port string, baudRate int) {
		if err := consumer.RequestPortChange(port, baudRate); err != nil {
			log.Warnw("Cannot change the port", "port", port, "error", err)
		}
	}).Watch()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	var server *monitor.Server
	if cfg.HTTP.Listen != "" {
		server = monitor.NewServer(cfg.HTTP.Listen, monitor.NewHandler(consumer, log).InitRoutes())
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Infow("HTTP monitor listening", "address", cfg.HTTP.Listen)
			if err := server.Run(); err != nil {
				log.Errorw("HTTP monitor failed", "error", err)
			}
		}()
	}

	log.Infow("Bridge started", "port", cfg.Serial.Port, "baudRate", cfg.Serial.Baud)
	consumer.Run(ctx, cfg.Control.Tick)

	log.Info("Shutting down")
	worker.Stop()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warnw("HTTP monitor forced to shut down", "error", err)
		}
	}
	wg.Wait()
	return nil
}
