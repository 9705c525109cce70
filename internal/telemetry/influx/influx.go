// Package influx writes step telemetry to InfluxDB. When the server cannot
// be reached points go to a gzip line-protocol backup file instead.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/sailsitl/sailsim/internal/config"
	"github.com/sailsitl/sailsim/pkg/core"
)

// Measurement names.
const (
	MeasurementState   = "boat_state"
	MeasurementSummary = "run_summary"
)

// retentionSeconds is the retention of buckets created on first connect.
const retentionSeconds = 60 * 60 * 24 * 90

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: []string{cfg.Bucket},
		Logger:      log,
		BackupPath:  backupPath,
		cfg:         cfg,
	}
}

// URL is the server address built from the config.
func (m *Manager) URL() string {
	return fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)

	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Str("url", m.URL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(m.cfg.Org, bucket)
		m.Writers[bucket] = w

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}

	m.Logger.Debug().Strs("buckets", m.BucketNames).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := strings.TrimRight(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Sink returns a dispatcher sink writing one boat_state point per sample.
// Timestamps are start plus the simulated time of the sample.
func (m *Manager) Sink(run *core.Run) func(core.StepSample) error {
	return func(s core.StepSample) error {
		return m.WritePoint(m.cfg.Bucket, StatePoint(run, &s))
	}
}

// WriteSummary records the end of a run.
func (m *Manager) WriteSummary(run *core.Run, summary *core.RunSummary) error {
	return m.WritePoint(m.cfg.Bucket, SummaryPoint(run, summary))
}

// Close flushes the writers and the backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return nil
	}
	err := m.BackupWriter.Close()
	if cerr := m.backupFile.Close(); err == nil {
		err = cerr
	}
	m.BackupWriter = nil
	return err
}

func sampleTime(run *core.Run, simTime float64) time.Time {
	return run.StartTime.Add(time.Duration(simTime * float64(time.Second)))
}

// StatePoint converts a sample to a boat_state point.
func StatePoint(run *core.Run, s *core.StepSample) *influxdb2_write.Point {
	st := &s.State
	return influxdb2.NewPoint(
		MeasurementState,
		map[string]string{
			"run":   run.UUID,
			"frame": run.Frame,
		},
		map[string]interface{}{
			"step":       int64(s.Step),
			"lat":        st.Location.Latitude,
			"lon":        st.Location.Longitude,
			"alt":        st.Location.Altitude,
			"north":      st.Position.X,
			"east":       st.Position.Y,
			"roll":       st.Attitude.Roll,
			"pitch":      st.Attitude.Pitch,
			"yaw":        st.Attitude.Yaw,
			"speed":      st.Velocity.HorizontalLength(),
			"airspeed":   st.Airspeed,
			"wind_speed": s.WindSpeed,
			"wind_angle": s.WindAngle,
			"sail_angle": s.SailAngle,
			"force_fwd":  s.ForceFwd,
			"force_heel": s.ForceHeel,
			"wave_heave": s.WaveHeave,
		},
		sampleTime(run, s.SimTime),
	)
}

// SummaryPoint converts a run summary to a run_summary point.
func SummaryPoint(run *core.Run, sum *core.RunSummary) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		MeasurementSummary,
		map[string]string{
			"run":   run.UUID,
			"name":  run.Name,
			"frame": run.Frame,
		},
		map[string]interface{}{
			"steps":        int64(sum.Steps),
			"sim_time":     sum.SimTime,
			"distance":     sum.Distance,
			"track_length": sum.TrackLength,
			"max_speed":    sum.MaxSpeed,
			"cancelled":    sum.Cancelled,
		},
		sampleTime(run, sum.SimTime),
	)
}
