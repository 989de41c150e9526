package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingKey is returned when a required key is absent.
var ErrMissingKey = errors.New("missing required config key")

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDMapper  string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string

	// Topics
	TopicGPS   string
	TopicWeeds string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int
	GPSParser     string // "gga" or "nmea"

	// Mapping
	DetectInterval int // run the detector every N fixes
	WeedMapPath    string

	// Web Server
	WebServerPort int
	MetricsPort   int // mapper's /metrics endpoint

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	LogDebug bool
}

// keys lists every key Load understands; the environment may override any
// of them.
var keys = []string{
	"MQTT_BROKER",
	"MQTT_CLIENT_ID_MAPPER",
	"MQTT_CLIENT_ID_WEB",
	"MQTT_CLIENT_ID_CONSOLE",
	"MQTT_CLIENT_ID_DISPLAY",
	"TOPIC_GPS",
	"TOPIC_WEEDS",
	"GPS_SERIAL_PORT",
	"GPS_BAUD_RATE",
	"GPS_PARSER",
	"DETECT_INTERVAL",
	"WEED_MAP_PATH",
	"WEB_SERVER_PORT",
	"METRICS_PORT",
	"DISPLAY_I2C_ADDR",
	"DISPLAY_UPDATE_INTERVAL",
	"LOG_DEBUG",
}

func defaults() *Config {
	return &Config{
		MQTTClientIDMapper:    "weed-mapper",
		MQTTClientIDWeb:       "weed-mapper-web",
		MQTTClientIDConsole:   "weed-mapper-console",
		MQTTClientIDDisplay:   "weed-mapper-display",
		TopicGPS:              "weeder/gps",
		TopicWeeds:            "weeder/weeds",
		GPSParser:             "gga",
		DetectInterval:        5,
		WeedMapPath:           "weed_map.json",
		WebServerPort:         8080,
		MetricsPort:           9100,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 500,
	}
}

// Load reads a KEY=VALUE configuration file (# starts a comment) and
// returns a Config. Environment variables with the same name win over the
// file. An empty path loads from the environment alone.
func Load(configPath string) (*Config, error) {
	values := map[string]string{}
	if configPath != "" {
		var err error
		values, err = godotenv.Read(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	cfg := defaults()
	for key, value := range values {
		if err := cfg.setValue(key, strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_MAPPER":
		c.MQTTClientIDMapper = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_WEEDS":
		c.TopicWeeds = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", rate)
		}
		c.GPSBaudRate = rate
	case "GPS_PARSER":
		if value != "gga" && value != "nmea" {
			return fmt.Errorf("GPS_PARSER must be gga or nmea, got %q", value)
		}
		c.GPSParser = value

	// Mapping
	case "DETECT_INTERVAL":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DETECT_INTERVAL %q: %w", value, err)
		}
		if n < 1 {
			return fmt.Errorf("DETECT_INTERVAL must be at least 1, got %d", n)
		}
		c.DetectInterval = n
	case "WEED_MAP_PATH":
		c.WeedMapPath = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port
	case "METRICS_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid METRICS_PORT %q: %w", value, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("METRICS_PORT must be 1-65535, got %d", port)
		}
		c.MetricsPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		if interval < 1 {
			return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be at least 1, got %d", interval)
		}
		c.DisplayUpdateInterval = interval

	case "LOG_DEBUG":
		debug, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_DEBUG %q: %w", value, err)
		}
		c.LogDebug = debug

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("%w: MQTT_BROKER", ErrMissingKey)
	}
	if c.GPSSerialPort == "" {
		return fmt.Errorf("%w: GPS_SERIAL_PORT", ErrMissingKey)
	}
	if c.GPSBaudRate == 0 {
		return fmt.Errorf("%w: GPS_BAUD_RATE", ErrMissingKey)
	}
	if c.WeedMapPath == "" {
		return fmt.Errorf("%w: WEED_MAP_PATH", ErrMissingKey)
	}
	return nil
}
