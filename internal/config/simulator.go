package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"
)

// SimulatorConfig configures actuator-sim, the stand-in for the ESP32
// controller.
type SimulatorConfig struct {
	HTTPAddr         string
	MQTTBrokerURL    string
	MQTTClientID     string
	MQTTUsername     string
	MQTTPassword     string
	MQTTCommandTopic string
	VocabularyFile   string
	LogLevel         slog.Level
}

var simulatorDefaults = map[string]any{
	"sim_http_addr":      ":9021",
	"sim_mqtt_client_id": "actuator-sim",
	"mqtt_broker_url":    defaults["mqtt_broker_url"],
	"mqtt_username":      "",
	"mqtt_password":      "",
	"mqtt_command_topic": defaults["mqtt_command_topic"],
	"vocabulary_file":    "",
	"log_level":          "info",
}

func LoadSimulatorConfig() (SimulatorConfig, error) {
	return loadSimulator(viper.New(), os.Getenv(ConfigFileEnv))
}

func loadSimulator(v *viper.Viper, file string) (SimulatorConfig, error) {
	for key, val := range simulatorDefaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return SimulatorConfig{}, fmt.Errorf("%s: read %s: %w", ConfigFileEnv, file, err)
		}
	}

	r := reader{v: v}
	cfg := SimulatorConfig{
		HTTPAddr:         r.text("sim_http_addr"),
		MQTTBrokerURL:    r.text("mqtt_broker_url"),
		MQTTClientID:     r.text("sim_mqtt_client_id"),
		MQTTUsername:     r.text("mqtt_username"),
		MQTTPassword:     r.text("mqtt_password"),
		MQTTCommandTopic: r.text("mqtt_command_topic"),
		VocabularyFile:   r.text("vocabulary_file"),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(r.text("log_level"))); err != nil {
		return SimulatorConfig{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if cfg.MQTTBrokerURL == "" {
		return SimulatorConfig{}, fmt.Errorf("MQTT_BROKER_URL is required")
	}
	if cfg.MQTTCommandTopic == "" {
		return SimulatorConfig{}, fmt.Errorf("MQTT_COMMAND_TOPIC is required")
	}
	return cfg, nil
}
