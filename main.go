package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/aab18011/ffmpeg-v4l2-connector/cmd"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/camera"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/config"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/events"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/logging"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/metrics"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/probe"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/relay"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/slots"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/supervisor"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Camera list settings
	CamerasFile  string `help:"Path to the JSON camera list" default:"/etc/roc/cameras.json" toml:"cameras.file" env:"CAMERAS_FILE"`
	CamerasWatch bool   `help:"Reload credentials when the camera list changes" default:"true" toml:"cameras.watch" env:"CAMERAS_WATCH"`

	// Capture device settings
	DeviceDir string `help:"Directory scanned for capture devices" default:"/dev" toml:"devices.dir" env:"DEVICES_DIR"`

	// Relay settings
	RelayLogDir string `help:"Directory for per-camera relay logs" default:"/var/log/cameras" toml:"relay.log_dir" env:"RELAY_LOG_DIR"`

	// Metrics settings
	MetricsPort string `help:"Metrics listen address, empty disables" default:"" toml:"metrics.port" env:"METRICS_PORT"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSupervisor string `help:"Supervisor logging level" default:"info" toml:"logging.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingProbe      string `help:"Probe logging level" default:"info" toml:"logging.probe" env:"LOGGING_PROBE"`
	LoggingRelay      string `help:"Relay logging level" default:"info" toml:"logging.relay" env:"LOGGING_RELAY"`
	LoggingFFmpeg     string `help:"Relayed ffmpeg output logging level" default:"warn" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingConfig     string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			fmt.Fprintln(os.Stderr, "failed to load config:", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"supervisor": opts.LoggingSupervisor,
				"probe":      opts.LoggingProbe,
				"relay":      opts.LoggingRelay,
				"ffmpeg":     opts.LoggingFFmpeg,
				"config":     opts.LoggingConfig,
			},
		})

		logger := logging.GetLogger("main")

		ctx, cancel := context.WithCancel(context.Background())

		var sup *supervisor.Supervisor
		var watcher *config.Watcher[[]camera.Record]
		var metricsServer *http.Server

		hooks.OnStart(func() {
			logger.Info("Starting camera relay supervisor", "version", version.String())

			provider := slots.DevProvider{Dir: opts.DeviceDir}
			devices, err := provider.Enumerate()
			if err != nil {
				logger.Error("Failed to enumerate capture devices", "error", err)
				os.Exit(1)
			}
			if len(devices) == 0 {
				logger.Error("No capture devices found, is the loopback module loaded?", "dir", opts.DeviceDir)
				os.Exit(1)
			}

			records, err := camera.LoadFile(opts.CamerasFile)
			if err != nil {
				logger.Error("Failed to load camera list", "path", opts.CamerasFile, "error", err)
				os.Exit(1)
			}

			cameras := camera.Register(records, devices, logger)

			bus := events.New()
			metrics.Bridge(bus)

			prober := probe.NewProber(logging.GetLogger("probe"))
			launcher := relay.NewLauncher(opts.RelayLogDir,
				logging.GetLogger("relay"), logging.GetLogger("ffmpeg"))

			sup = supervisor.New(supervisor.Options{
				Cameras: cameras,
				Probe:   prober.Probe,
				Launch: func(cam *camera.Camera, v camera.Variant, fps float64, devicePath string) (supervisor.RelayHandle, error) {
					h, launchErr := launcher.Launch(cam, v, fps, devicePath)
					if launchErr != nil {
						return nil, launchErr
					}
					return h, nil
				},
				Reachable: func(address string) bool {
					return probe.Reachable(address, probe.DefaultDialTimeout)
				},
				Slots:  provider.Enumerate,
				Bus:    bus,
				Logger: logging.GetLogger("supervisor"),
			})

			statuses := sup.Startup(ctx)
			fmt.Print(supervisor.RenderTable(statuses))

			if opts.CamerasWatch {
				watcher = config.NewWatcher(opts.CamerasFile, camera.LoadFile, logging.GetLogger("config"))
				watcher.OnReload(func(recs []camera.Record) {
					sup.ApplyRecords(recs)
				})
				if watchErr := watcher.Start(); watchErr != nil {
					logger.Warn("Failed to start camera list watcher", "error", watchErr)
					watcher = nil
				}
			}

			if opts.MetricsPort != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				metricsServer = &http.Server{Addr: opts.MetricsPort, Handler: mux}
				go func() {
					logger.Info("Metrics endpoint listening", "addr", opts.MetricsPort)
					if serveErr := metricsServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
						logger.Error("Metrics server failed", "error", serveErr)
					}
				}()
			}

			if runErr := sup.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				logger.Error("Supervisor stopped", "error", runErr)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			if sup != nil {
				<-sup.Done()
			}
			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping camera list watcher", "error", stopErr)
				}
			}
			if metricsServer != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if stopErr := metricsServer.Shutdown(shutdownCtx); stopErr != nil {
					logger.Warn("Error stopping metrics server", "error", stopErr)
				}
			}
		})
	})

	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateValidateCmd())
	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	cli.Run()
}
