package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the file Load looks for in the config directory.
const ConfigFileName = "sailsim.cfg.json"

// BoatConfig holds the physical description of the boat
type BoatConfig struct {
	Frame            string  `json:"frame" mapstructure:"frame"`
	SailType         string  `json:"sailType" mapstructure:"sailType"`
	ForceScaling     string  `json:"forceScaling" mapstructure:"forceScaling"`
	SailArea         float64 `json:"sailArea" mapstructure:"sailArea"`
	AirDensity       float64 `json:"airDensity" mapstructure:"airDensity"`
	Mass             float64 `json:"mass" mapstructure:"mass"`
	SteeringAngleMax float64 `json:"steeringAngleMax" mapstructure:"steeringAngleMax"`
	TurningCircle    float64 `json:"turningCircle" mapstructure:"turningCircle"`
	HullDrag         float64 `json:"hullDrag" mapstructure:"hullDrag"`
	ThrottleGain     float64 `json:"throttleGain" mapstructure:"throttleGain"`
	Heel             HeelConfig
	WaveGains        WaveGainConfig
}

// HeelConfig selects the heel policy and the keel geometry
type HeelConfig struct {
	Policy         string  `json:"policy" mapstructure:"policy"`
	AngleGain      float64 `json:"angleGain" mapstructure:"angleGain"`
	CenterOfEffort float64 `json:"centerOfEffort" mapstructure:"centerOfEffort"`
	KeelMass       float64 `json:"keelMass" mapstructure:"keelMass"`
	KeelDepth      float64 `json:"keelDepth" mapstructure:"keelDepth"`
	KeelChord      float64 `json:"keelChord" mapstructure:"keelChord"`
	Damping        float64 `json:"damping" mapstructure:"damping"`
}

// WaveGainConfig scales the wave disturbance
type WaveGainConfig struct {
	Angle float64 `json:"angle" mapstructure:"angle"`
	Heave float64 `json:"heave" mapstructure:"heave"`
}

// EnvironmentConfig describes wind, tide, swell and the start conditions
type EnvironmentConfig struct {
	WindSpeed     float64
	WindDirection float64
	GustAmplitude float64
	GustPeriod    float64
	TideSpeed     float64
	TideDirection float64
	WaveEnable    int
	WaveAmplitude float64
	WaveLength    float64
	WaveSpeed     float64
	WaveDirection float64
	Armed         bool
	Home          string // "long,lat,alt"
	StartTime     time.Time
}

// RunConfig controls a single simulation run
type RunConfig struct {
	Name     string
	TimeStep float64 // seconds
	Duration time.Duration
	Schedule string // path to a control schedule, empty for neutral input
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration
	DumpPath     string
}

// WebSocketConfig holds live-viewer streaming settings
type WebSocketConfig struct {
	URL    string
	Secret string
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// StorageConfig selects and configures the run storage backend
type StorageConfig struct {
	Type      string
	Memory    MemoryConfig
	SQLite    SQLiteConfig
	WebSocket WebSocketConfig
	DB        DBConfig
}

// InfluxConfig holds InfluxDB telemetry settings
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// MQTTConfig holds MQTT telemetry settings
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	Decimate    int // publish every Nth step
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// UploadConfig holds run archive upload settings
type UploadConfig struct {
	Enabled bool
	URL     string
	APIKey  string
	Tag     string
}

// MonitorConfig controls the status file written during a run
type MonitorConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./sailsimlogs")

	viper.SetDefault("boat.frame", "sailboat")
	viper.SetDefault("boat.sailType", "mainsail")
	viper.SetDefault("boat.forceScaling", "si")
	viper.SetDefault("boat.sailArea", 1.0)
	viper.SetDefault("boat.airDensity", 1.225)
	viper.SetDefault("boat.mass", 2.0)
	viper.SetDefault("boat.steeringAngleMax", 35.0)
	viper.SetDefault("boat.turningCircle", 1.8)
	viper.SetDefault("boat.hullDrag", 0.5)
	viper.SetDefault("boat.throttleGain", 0.1)
	viper.SetDefault("boat.heel.policy", "direct")
	viper.SetDefault("boat.heel.angleGain", 0.05)
	viper.SetDefault("boat.heel.centerOfEffort", 0.5)
	viper.SetDefault("boat.heel.keelMass", 1.0)
	viper.SetDefault("boat.heel.keelDepth", 0.5)
	viper.SetDefault("boat.heel.keelChord", 0.1)
	viper.SetDefault("boat.heel.damping", 50.0)
	viper.SetDefault("boat.waveGains.angle", 1.0)
	viper.SetDefault("boat.waveGains.heave", 1.0)

	viper.SetDefault("environment.wind.speed", 0.0)
	viper.SetDefault("environment.wind.direction", 0.0)
	viper.SetDefault("environment.wind.gustAmplitude", 0.0)
	viper.SetDefault("environment.wind.gustPeriod", 0.0)
	viper.SetDefault("environment.tide.speed", 0.0)
	viper.SetDefault("environment.tide.direction", 0.0)
	viper.SetDefault("environment.wave.enable", 0)
	viper.SetDefault("environment.wave.amplitude", 0.5)
	viper.SetDefault("environment.wave.length", 10.0)
	viper.SetDefault("environment.wave.speed", 2.0)
	viper.SetDefault("environment.wave.direction", 0.0)
	viper.SetDefault("environment.armed", true)
	viper.SetDefault("environment.home", "149.165230,-35.363261,584")
	viper.SetDefault("environment.startTime", "2024-06-01T00:00:00Z")

	viper.SetDefault("run.name", "sailsim")
	viper.SetDefault("run.timeStep", 0.0025)
	viper.SetDefault("run.duration", "60s")
	viper.SetDefault("run.schedule", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./runs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./runs/sailsim.db")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "sailsim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "sailsim")
	viper.SetDefault("influx.bucket", "sitl_telemetry")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientId", "sailsim")
	viper.SetDefault("mqtt.topicPrefix", "sailsim")
	viper.SetDefault("mqtt.qos", 0)
	viper.SetDefault("mqtt.decimate", 40)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "sailsim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("upload.enabled", false)
	viper.SetDefault("upload.url", "http://localhost:5000")
	viper.SetDefault("upload.apiKey", "")
	viper.SetDefault("upload.tag", "")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// UseDefaults installs the default values without reading a file.
func UseDefaults() {
	setDefaults()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBoatConfig returns the boat description.
func GetBoatConfig() BoatConfig {
	return BoatConfig{
		Frame:            viper.GetString("boat.frame"),
		SailType:         viper.GetString("boat.sailType"),
		ForceScaling:     viper.GetString("boat.forceScaling"),
		SailArea:         viper.GetFloat64("boat.sailArea"),
		AirDensity:       viper.GetFloat64("boat.airDensity"),
		Mass:             viper.GetFloat64("boat.mass"),
		SteeringAngleMax: viper.GetFloat64("boat.steeringAngleMax"),
		TurningCircle:    viper.GetFloat64("boat.turningCircle"),
		HullDrag:         viper.GetFloat64("boat.hullDrag"),
		ThrottleGain:     viper.GetFloat64("boat.throttleGain"),
		Heel: HeelConfig{
			Policy:         viper.GetString("boat.heel.policy"),
			AngleGain:      viper.GetFloat64("boat.heel.angleGain"),
			CenterOfEffort: viper.GetFloat64("boat.heel.centerOfEffort"),
			KeelMass:       viper.GetFloat64("boat.heel.keelMass"),
			KeelDepth:      viper.GetFloat64("boat.heel.keelDepth"),
			KeelChord:      viper.GetFloat64("boat.heel.keelChord"),
			Damping:        viper.GetFloat64("boat.heel.damping"),
		},
		WaveGains: WaveGainConfig{
			Angle: viper.GetFloat64("boat.waveGains.angle"),
			Heave: viper.GetFloat64("boat.waveGains.heave"),
		},
	}
}

// GetEnvironmentConfig returns the environment. An unparsable start time
// falls back to the Unix epoch.
func GetEnvironmentConfig() EnvironmentConfig {
	start, err := time.Parse(time.RFC3339, viper.GetString("environment.startTime"))
	if err != nil {
		start = time.Unix(0, 0).UTC()
	}
	return EnvironmentConfig{
		WindSpeed:     viper.GetFloat64("environment.wind.speed"),
		WindDirection: viper.GetFloat64("environment.wind.direction"),
		GustAmplitude: viper.GetFloat64("environment.wind.gustAmplitude"),
		GustPeriod:    viper.GetFloat64("environment.wind.gustPeriod"),
		TideSpeed:     viper.GetFloat64("environment.tide.speed"),
		TideDirection: viper.GetFloat64("environment.tide.direction"),
		WaveEnable:    viper.GetInt("environment.wave.enable"),
		WaveAmplitude: viper.GetFloat64("environment.wave.amplitude"),
		WaveLength:    viper.GetFloat64("environment.wave.length"),
		WaveSpeed:     viper.GetFloat64("environment.wave.speed"),
		WaveDirection: viper.GetFloat64("environment.wave.direction"),
		Armed:         viper.GetBool("environment.armed"),
		Home:          viper.GetString("environment.home"),
		StartTime:     start,
	}
}

// GetRunConfig returns the run settings.
func GetRunConfig() RunConfig {
	return RunConfig{
		Name:     viper.GetString("run.name"),
		TimeStep: viper.GetFloat64("run.timeStep"),
		Duration: viper.GetDuration("run.duration"),
		Schedule: viper.GetString("run.schedule"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetMQTTConfig returns the MQTT configuration.
func GetMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:     viper.GetBool("mqtt.enabled"),
		Broker:      viper.GetString("mqtt.broker"),
		ClientID:    viper.GetString("mqtt.clientId"),
		TopicPrefix: viper.GetString("mqtt.topicPrefix"),
		QoS:         byte(viper.GetInt("mqtt.qos")),
		Decimate:    viper.GetInt("mqtt.decimate"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the Graylog configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetUploadConfig returns the run archive upload configuration.
func GetUploadConfig() UploadConfig {
	return UploadConfig{
		Enabled: viper.GetBool("upload.enabled"),
		URL:     viper.GetString("upload.url"),
		APIKey:  viper.GetString("upload.apiKey"),
		Tag:     viper.GetString("upload.tag"),
	}
}

// GetMonitorConfig returns the status monitor configuration.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:  viper.GetBool("monitor.enabled"),
		Interval: viper.GetDuration("monitor.interval"),
	}
}
