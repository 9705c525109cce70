package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/sailsitl/sailsim/internal/api"
	"github.com/sailsitl/sailsim/internal/config"
	"github.com/sailsitl/sailsim/internal/dispatcher"
	"github.com/sailsitl/sailsim/internal/logging"
	"github.com/sailsitl/sailsim/internal/monitor"
	intOtel "github.com/sailsitl/sailsim/internal/otel"
	"github.com/sailsitl/sailsim/internal/runner"
	"github.com/sailsitl/sailsim/internal/storage"
	"github.com/sailsitl/sailsim/internal/telemetry/influx"
	"github.com/sailsitl/sailsim/internal/telemetry/mqtt"
	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/spf13/viper"
)

// sink buffer sizes, in samples
const (
	storageBuffer   = 8192
	telemetryBuffer = 4096
)

// snapshotKeys are the config sections stored with each run. Credentials
// live elsewhere and are never recorded.
var snapshotKeys = []string{"boat", "environment", "run"}

func runCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", ".", "directory holding "+config.ConfigFileName)
	schedulePath := fs.String("schedule", "", "control schedule JSON (overrides run.schedule)")
	duration := fs.Duration("duration", 0, "simulated run length (overrides run.duration)")
	storageType := fs.String("storage", "", "memory, sqlite, postgres, websocket or none (overrides storage.type)")
	name := fs.String("name", "", "run name (overrides run.name)")
	home := fs.String("home", "", `home position "lon,lat,alt" (overrides environment.home)`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	sessionStart := time.Now()

	slogManager := logging.NewSlogManager()
	slogManager.Setup(stderr, "info", nil)
	logger := slogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
		config.UseDefaults()
	} else {
		logger.Info("Loaded config", "dir", *configDir)
	}

	overrides := map[string]string{
		"run.schedule":     *schedulePath,
		"storage.type":     *storageType,
		"run.name":         *name,
		"environment.home": *home,
	}
	for key, v := range overrides {
		if v != "" {
			viper.Set(key, v)
		}
	}
	if *duration > 0 {
		viper.Set("run.duration", duration.String())
	}

	// session log file
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	logPath := logging.LogFilePath(logsDir, "sailsim", sessionStart)
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	otelCfg := config.GetOTelConfig()
	otelProvider, err := intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: Version,
		BatchTimeout:   otelCfg.BatchTimeout,
		LogWriter:      logFile,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
		otelProvider, _ = intOtel.New(intOtel.Config{})
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "otel shutdown: %v\n", err)
		}
	}()

	progress := &runner.Progress{}
	opts := []logging.Option{logging.WithContext(progress.Attrs)}

	var graylog io.Writer
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := gelf.NewWriter(gl.Address)
		if err != nil {
			logger.Error("Failed to connect to Graylog", "error", err, "address", gl.Address)
		} else {
			defer w.Close()
			graylog = w
			opts = append(opts, logging.WithGraylog(w))
		}
	}

	level := viper.GetString("logLevel")
	slogManager.Setup(logFile, level, otelProvider.LoggerProvider(), opts...)
	logger = slogManager.Logger()
	logger.Info("Logging to file", "path", logPath)

	zlog := logging.NewZerolog(level, logFile, graylog)

	summary, exportPath, err := simulate(ctx, logger, zlog, otelProvider, progress)
	if err != nil {
		logger.Error("Run failed", "error", err)
		return err
	}
	if exportPath != "" {
		logger.Info("Run exported", "path", exportPath)
		if up := config.GetUploadConfig(); up.Enabled {
			uploadRun(ctx, logger, up, exportPath, summary)
		}
	}

	if err := slogManager.Flush(ctx); err != nil {
		logger.Warn("Failed to flush logs", "error", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// simulate wires the boat, sinks and storage from the loaded configuration
// and performs one run.
func simulate(ctx context.Context, logger *slog.Logger, zlog zerolog.Logger, otelProvider *intOtel.Provider, progress *runner.Progress) (core.RunSummary, string, error) {
	runCfg := config.GetRunConfig()
	envCfg := config.GetEnvironmentConfig()

	sim, err := runner.NewSim(config.GetBoatConfig(), envCfg, runCfg.TimeStep, logger)
	if err != nil {
		return core.RunSummary{}, "", err
	}

	var schedule *runner.Schedule
	if runCfg.Schedule != "" {
		schedule, err = runner.LoadSchedule(runCfg.Schedule)
		if err != nil {
			return core.RunSummary{}, "", err
		}
		logger.Info("Loaded schedule", "path", runCfg.Schedule, "keyframes", schedule.Len())
	}

	backend, err := storage.NewBackend(config.GetStorageConfig(), storage.Dependencies{Logger: logger, ZLog: zlog})
	if err != nil {
		return core.RunSummary{}, "", fmt.Errorf("create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return core.RunSummary{}, "", fmt.Errorf("init storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	run := sim.NewRun(runCfg.Name, envCfg.StartTime, runCfg.Duration, configSnapshot())
	if err := backend.StartRun(run); err != nil {
		return core.RunSummary{}, "", fmt.Errorf("start run: %w", err)
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return core.RunSummary{}, "", err
	}
	d.Register("storage", func(s core.StepSample) error {
		return backend.RecordStep(&s)
	}, dispatcher.Buffered(storageBuffer), dispatcher.Blocking())

	var influxMgr *influx.Manager
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backupPath := filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("influx_backup.%s.log.gz", run.UUID))
		influxMgr = influx.NewManager(influxCfg, zlog, backupPath)
		if err := influxMgr.Connect(ctx); err != nil {
			logger.Error("Failed to connect to InfluxDB", "error", err)
			influxMgr = nil
		} else {
			d.Register("influx", influxMgr.Sink(run), dispatcher.Buffered(telemetryBuffer), dispatcher.Logged())
		}
	}

	var publisher *mqtt.Publisher
	if mqttCfg := config.GetMQTTConfig(); mqttCfg.Enabled {
		publisher = mqtt.New(mqttCfg, zlog)
		if err := publisher.Connect(); err != nil {
			logger.Error("Failed to connect to MQTT broker", "error", err)
			publisher = nil
		} else {
			d.Register("mqtt", publisher.Sink(run), dispatcher.Buffered(telemetryBuffer))
		}
	}

	logger.Info("Sinks registered", "sinks", d.Sinks())

	r, err := runner.New(sim, runner.Options{
		Schedule:  schedule,
		Publisher: d,
		Logger:    logger,
		Meter:     otelProvider.Meter("github.com/sailsitl/sailsim/internal/runner"),
		Progress:  progress,
	})
	if err != nil {
		return core.RunSummary{}, "", err
	}

	if monCfg := config.GetMonitorConfig(); monCfg.Enabled {
		mon := monitor.NewService(monitor.Dependencies{
			Source:     progress,
			Logger:     logger,
			StatusPath: filepath.Join(viper.GetString("logsDir"), "status.json"),
			Interval:   monCfg.Interval,
		})
		mon.Start()
		defer mon.Stop()
	}

	summary, err := r.Run(ctx, run, runCfg.Duration)
	d.Close()
	if err != nil {
		return summary, "", err
	}

	if err := backend.EndRun(&summary); err != nil {
		logger.Error("Failed to end run in storage", "error", err)
	}
	if influxMgr != nil {
		if err := influxMgr.WriteSummary(run, &summary); err != nil {
			logger.Error("Failed to write run summary to InfluxDB", "error", err)
		}
		if err := influxMgr.Close(); err != nil {
			logger.Error("Failed to close InfluxDB", "error", err)
		}
	}
	if publisher != nil {
		if err := publisher.PublishSummary(&summary); err != nil {
			logger.Error("Failed to publish run summary", "error", err)
		}
		publisher.Close()
	}

	var exportPath string
	if exp, ok := backend.(storage.Exporter); ok {
		exportPath = exp.ExportedFilePath()
	}
	return summary, exportPath, nil
}

// uploadRun sends the export to the run archive. Failures are logged; the
// export stays on disk either way.
func uploadRun(ctx context.Context, logger *slog.Logger, cfg config.UploadConfig, path string, summary core.RunSummary) {
	client := api.New(cfg.URL, cfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		logger.Error("Run archive unreachable, skipping upload", "error", err, "url", cfg.URL)
		return
	}

	runCfg := config.GetRunConfig()
	err := client.Upload(ctx, path, api.Metadata{
		RunID:    summary.RunID,
		RunName:  runCfg.Name,
		Frame:    config.GetBoatConfig().Frame,
		Duration: summary.SimTime,
		Tag:      cfg.Tag,
	})
	if err != nil {
		logger.Error("Failed to upload run", "error", err, "path", path)
		return
	}
	logger.Info("Run uploaded", "url", cfg.URL, "path", path)
}

func configSnapshot() map[string]any {
	all := viper.AllSettings()
	snap := make(map[string]any, len(snapshotKeys))
	for _, key := range snapshotKeys {
		if v, ok := all[key]; ok {
			snap[key] = v
		}
	}
	return snap
}
