package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "DOCALC_"

type Config struct {
	DistrictID  string            `koanf:"district_id" validate:"required"`
	Log         LogConfig         `koanf:"log"`
	Profiles    ProfilesConfig    `koanf:"profiles"`
	COP         COPConfig         `koanf:"cop"`
	Chart       ChartConfig       `koanf:"chart"`
	Export      ExportConfig      `koanf:"export"`
	Controllers ControllersConfig `koanf:"controllers"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

type ProfilesConfig struct {
	// Steps is the length of the synthetic example profiles. Ignored when
	// buildings are loaded from files.
	Steps     int              `koanf:"steps" validate:"gte=1"`
	Buildings []BuildingSource `koanf:"buildings" validate:"dive"`
}

type BuildingSource struct {
	Name string `koanf:"name" validate:"required"`
	Path string `koanf:"path" validate:"required"`
}

type COPConfig struct {
	HeatPump float64 `koanf:"heat_pump" validate:"gte=1"`
	Chiller  float64 `koanf:"chiller" validate:"gt=0"`
}

type ChartConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"required_if=Enabled true"`
	Kind    string `koanf:"kind" validate:"oneof=timeseries duration"`
}

type ExportConfig struct {
	ReportPath string `koanf:"report_path"`
	CurvesPath string `koanf:"curves_path"`
}

type ControllersConfig struct {
	HTTP   HTTPConfig   `koanf:"http"`
	MQTT   MQTTConfig   `koanf:"mqtt"`
	MODBUS ModbusConfig `koanf:"modbus"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr" validate:"required_if=Enabled true"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url" validate:"required_if=Enabled true"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos" validate:"lte=1"`
	RetainReport    bool          `koanf:"retain_report"`
	PublishInterval time.Duration `koanf:"publish_interval" validate:"gte=0"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr" validate:"required_if=Enabled true"`
	UnitID  byte   `koanf:"unit_id" validate:"gte=1,lte=247"`
}

// AnyController reports whether the process should keep serving after the
// one-shot evaluation.
func (c Config) AnyController() bool {
	return c.Controllers.HTTP.Enabled || c.Controllers.MQTT.Enabled || c.Controllers.MODBUS.Enabled
}

func defaultConfig() Config {
	return Config{
		DistrictID: "default",
		Log:        LogConfig{Level: "info", Format: "console"},
		Profiles:   ProfilesConfig{Steps: 8760},
		COP:        COPConfig{HeatPump: 4, Chiller: 5},
		Chart: ChartConfig{
			Enabled: true,
			Path:    "DOC_visualization.png",
			Kind:    "timeseries",
		},
		Controllers: ControllersConfig{
			HTTP: HTTPConfig{Addr: ":8080"},
			MQTT: MQTTConfig{
				BrokerURL:       "tcp://localhost:1883",
				PublishInterval: time.Second,
			},
			MODBUS: ModbusConfig{Addr: "127.0.0.1:1502", UnitID: 1},
		},
	}
}

// LoadConfig layers defaults, the optional config file and DOCALC_*
// environment variables, then validates the result. A missing file is not an
// error.
func LoadConfig(path string) (Config, error) {
	return loadConfig(path, os.Environ)
}

func loadConfig(path string, environ func() []string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return Config{}, err
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, envPrefix)), value
		},
		EnvironFunc: environ,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Config file missing → use defaults
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sections whose first underscore separates the section from the key.
var envSections = map[string]bool{
	"log":      true,
	"profiles": true,
	"cop":      true,
	"chart":    true,
	"export":   true,
}

// envKeyTransform maps an environment key (prefix already stripped) to a
// koanf path:
//
//	CONTROLLERS_MQTT_PUBLISH_INTERVAL -> controllers.mqtt.publish_interval
//	COP_HEAT_PUMP                     -> cop.heat_pump
//	DISTRICT_ID                       -> district_id
func envKeyTransform(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	parts := strings.Split(key, "_")

	if parts[0] == "controllers" {
		if len(parts) < 3 {
			return key
		}
		return "controllers." + parts[1] + "." + strings.Join(parts[2:], "_")
	}
	if envSections[parts[0]] && len(parts) >= 2 {
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
	return key
}
