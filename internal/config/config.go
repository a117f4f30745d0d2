package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ConfigFileEnv names an optional yaml file read before the environment.
const ConfigFileEnv = "VOICEBUTTON_CONFIG"

type DispatcherConfig struct {
	CaptureDuration     time.Duration
	CaptureSampleRate   int
	CaptureChannels     int
	ProcessedSampleRate int
	ArtifactDir         string

	TogglePin     int
	RecordPin     int
	GPIOBackend   string
	GPIOSysfsRoot string
	PollInterval  time.Duration
	Debounce      time.Duration

	MQTTBrokerURL    string
	MQTTClientID     string
	MQTTUsername     string
	MQTTPassword     string
	MQTTCommandTopic string
	MQTTStatusTopic  string

	STTProvider           string
	STTBridgeURL          string
	STTHTTPURL            string
	STTTimeout            time.Duration
	GoogleCredentialsFile string
	LocaleEN              string
	LocaleVI              string

	VocabularyFile string
	DebugHTTPAddr  string
	LogLevel       slog.Level
}

var defaults = map[string]any{
	"capture_seconds":         5,
	"capture_sample_rate":     44100,
	"capture_channels":        2,
	"processed_sample_rate":   16000,
	"artifact_dir":            filepath.Join(os.TempDir(), "voicebutton"),
	"toggle_pin":              23,
	"record_pin":              26,
	"gpio_backend":            "sysfs",
	"gpio_sysfs_root":         "/sys/class/gpio",
	"poll_interval_ms":        10,
	"debounce_ms":             200,
	"mqtt_broker_url":         "tcp://localhost:1883",
	"mqtt_client_id":          "voicebutton",
	"mqtt_username":           "",
	"mqtt_password":           "",
	"mqtt_command_topic":      "esp32/test",
	"mqtt_status_topic":       "",
	"stt_provider":            "google",
	"stt_bridge_url":          "",
	"stt_http_url":            "",
	"stt_timeout_seconds":     15,
	"google_credentials_file": "",
	"locale_en":               "en-US",
	"locale_vi":               "vi-VN",
	"vocabulary_file":         "",
	"debug_http_addr":         "127.0.0.1:9020",
	"log_level":               "info",
}

func LoadDispatcherConfig() (DispatcherConfig, error) {
	return load(viper.New(), os.Getenv(ConfigFileEnv))
}

func load(v *viper.Viper, file string) (DispatcherConfig, error) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return DispatcherConfig{}, fmt.Errorf("%s: read %s: %w", ConfigFileEnv, file, err)
		}
	}

	r := reader{v: v}
	cfg := DispatcherConfig{
		CaptureDuration:     r.seconds("capture_seconds"),
		CaptureSampleRate:   r.number("capture_sample_rate"),
		CaptureChannels:     r.number("capture_channels"),
		ProcessedSampleRate: r.number("processed_sample_rate"),
		ArtifactDir:         r.text("artifact_dir"),

		TogglePin:     r.number("toggle_pin"),
		RecordPin:     r.number("record_pin"),
		GPIOBackend:   strings.ToLower(r.text("gpio_backend")),
		GPIOSysfsRoot: r.text("gpio_sysfs_root"),
		PollInterval:  r.millis("poll_interval_ms"),
		Debounce:      r.millis("debounce_ms"),

		MQTTBrokerURL:    r.text("mqtt_broker_url"),
		MQTTClientID:     r.text("mqtt_client_id"),
		MQTTUsername:     r.text("mqtt_username"),
		MQTTPassword:     r.text("mqtt_password"),
		MQTTCommandTopic: r.text("mqtt_command_topic"),
		MQTTStatusTopic:  r.text("mqtt_status_topic"),

		STTProvider:           strings.ToLower(r.text("stt_provider")),
		STTBridgeURL:          r.text("stt_bridge_url"),
		STTHTTPURL:            r.text("stt_http_url"),
		STTTimeout:            r.seconds("stt_timeout_seconds"),
		GoogleCredentialsFile: r.text("google_credentials_file"),
		LocaleEN:              r.text("locale_en"),
		LocaleVI:              r.text("locale_vi"),

		VocabularyFile: r.text("vocabulary_file"),
		DebugHTTPAddr:  r.text("debug_http_addr"),
	}
	if r.err != nil {
		return DispatcherConfig{}, r.err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(r.text("log_level"))); err != nil {
		return DispatcherConfig{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return DispatcherConfig{}, err
	}
	return cfg, nil
}

func (c DispatcherConfig) validate() error {
	switch {
	case c.CaptureDuration <= 0:
		return fmt.Errorf("CAPTURE_SECONDS must be positive")
	case c.CaptureSampleRate <= 0:
		return fmt.Errorf("CAPTURE_SAMPLE_RATE must be positive")
	case c.CaptureChannels <= 0:
		return fmt.Errorf("CAPTURE_CHANNELS must be positive")
	case c.ProcessedSampleRate <= 0:
		return fmt.Errorf("PROCESSED_SAMPLE_RATE must be positive")
	case c.ArtifactDir == "":
		return fmt.Errorf("ARTIFACT_DIR is required")
	case c.TogglePin < 0 || c.RecordPin < 0:
		return fmt.Errorf("TOGGLE_PIN and RECORD_PIN must not be negative")
	case c.TogglePin == c.RecordPin:
		return fmt.Errorf("TOGGLE_PIN and RECORD_PIN must differ (both %d)", c.TogglePin)
	case c.GPIOBackend != "sysfs" && c.GPIOBackend != "none":
		return fmt.Errorf("GPIO_BACKEND must be sysfs or none, got %q", c.GPIOBackend)
	case c.PollInterval <= 0:
		return fmt.Errorf("POLL_INTERVAL_MS must be positive")
	case c.Debounce <= 0:
		return fmt.Errorf("DEBOUNCE_MS must be positive")
	case c.MQTTBrokerURL == "":
		return fmt.Errorf("MQTT_BROKER_URL is required")
	case c.MQTTCommandTopic == "":
		return fmt.Errorf("MQTT_COMMAND_TOPIC is required")
	case c.STTTimeout <= 0:
		return fmt.Errorf("STT_TIMEOUT_SECONDS must be positive")
	}

	switch c.STTProvider {
	case "google":
	case "bridge":
		if c.STTBridgeURL == "" {
			return fmt.Errorf("STT_BRIDGE_URL is required when STT_PROVIDER=bridge")
		}
	case "http":
		if c.STTHTTPURL == "" {
			return fmt.Errorf("STT_HTTP_URL is required when STT_PROVIDER=http")
		}
	default:
		return fmt.Errorf("STT_PROVIDER must be google, bridge or http, got %q", c.STTProvider)
	}
	return nil
}

// reader keeps the first conversion error so a bad value is reported by
// its variable name instead of silently becoming zero.
type reader struct {
	v   *viper.Viper
	err error
}

func (r *reader) text(key string) string {
	return strings.TrimSpace(r.v.GetString(key))
}

func (r *reader) number(key string) int {
	n, err := cast.ToIntE(r.v.Get(key))
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", strings.ToUpper(key), err)
	}
	return n
}

func (r *reader) seconds(key string) time.Duration {
	return time.Duration(r.number(key)) * time.Second
}

func (r *reader) millis(key string) time.Duration {
	return time.Duration(r.number(key)) * time.Millisecond
}
