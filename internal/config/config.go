package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is resolved once at startup and static for the process lifetime.
type Config struct {
	AppEnv    string
	LogLevel  slog.Level
	StationID string

	// RS485 soil probe.
	SerialDevice  string
	SerialBaud    int
	BusDirPin     string        // GPIO driving the DE/RE direction control
	BusSettle     time.Duration // wait after the query before checking for a reply
	BusReadWindow time.Duration // per-read timeout while draining the reply

	// Wi-Fi uplink (managed by the OS, driven via nmcli).
	WifiIface         string
	WifiSSID          string
	WifiPSK           string
	JoinAttempts      int
	JoinWait          time.Duration
	ReconnectAttempts int
	ReconnectWait     time.Duration

	// Prediction service.
	PredictHost    string
	PredictPort    int
	PredictTimeout time.Duration

	// Loop cadence.
	SampleInterval  time.Duration
	DisplayInterval time.Duration

	// HD44780 LCD, 4-bit GPIO mode.
	LCDDataPins [4]string
	LCDRSPin    string
	LCDEPin     string
	LCDCols     int

	// Optional MQTT telemetry mirror; disabled when the broker is empty.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
}

func LoadFromEnv() (Config, error) {
	appEnv := getenv("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	wifiSSID := getenv("WIFI_SSID", "")
	if wifiSSID == "" {
		return Config{}, fmt.Errorf("WIFI_SSID must be set")
	}

	serialBaud, err := getenvInt("SERIAL_BAUD", 4800)
	if err != nil {
		return Config{}, err
	}
	predictPort, err := getenvInt("PREDICT_PORT", 5000)
	if err != nil {
		return Config{}, err
	}
	mqttPort, err := getenvInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	lcdCols, err := getenvInt("LCD_COLS", 16)
	if err != nil {
		return Config{}, err
	}
	if lcdCols <= 0 {
		return Config{}, fmt.Errorf("LCD_COLS must be positive, got %d", lcdCols)
	}
	joinAttempts, err := getenvInt("JOIN_ATTEMPTS", 10)
	if err != nil {
		return Config{}, err
	}
	reconnectAttempts, err := getenvInt("RECONNECT_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}

	busSettle, err := getenvDuration("BUS_SETTLE", 100*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	busReadWindow, err := getenvDuration("BUS_READ_WINDOW", 200*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	joinWait, err := getenvDuration("JOIN_WAIT", time.Second)
	if err != nil {
		return Config{}, err
	}
	reconnectWait, err := getenvDuration("RECONNECT_WAIT", time.Second)
	if err != nil {
		return Config{}, err
	}
	predictTimeout, err := getenvDuration("PREDICT_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	sampleInterval, err := getenvDuration("SAMPLE_INTERVAL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	if sampleInterval <= 0 {
		return Config{}, fmt.Errorf("SAMPLE_INTERVAL must be positive, got %v", sampleInterval)
	}
	displayInterval, err := getenvDuration("DISPLAY_INTERVAL", 3*time.Second)
	if err != nil {
		return Config{}, err
	}
	if displayInterval <= 0 {
		return Config{}, fmt.Errorf("DISPLAY_INTERVAL must be positive, got %v", displayInterval)
	}

	lcdDataPins, err := parsePinList(getenv("LCD_DATA_PINS", "GPIO26,GPIO19,GPIO13,GPIO6"))
	if err != nil {
		return Config{}, err
	}

	stationID := getenv("STATION_ID", "field-1")

	return Config{
		AppEnv:    appEnv,
		LogLevel:  level,
		StationID: stationID,

		SerialDevice:  getenv("SERIAL_DEVICE", "/dev/ttyUSB0"),
		SerialBaud:    serialBaud,
		BusDirPin:     getenv("BUS_DIR_PIN", "GPIO18"),
		BusSettle:     busSettle,
		BusReadWindow: busReadWindow,

		WifiIface:         getenv("WIFI_IFACE", "wlan0"),
		WifiSSID:          wifiSSID,
		WifiPSK:           getenv("WIFI_PSK", ""),
		JoinAttempts:      joinAttempts,
		JoinWait:          joinWait,
		ReconnectAttempts: reconnectAttempts,
		ReconnectWait:     reconnectWait,

		PredictHost:    getenv("PREDICT_HOST", "localhost"),
		PredictPort:    predictPort,
		PredictTimeout: predictTimeout,

		SampleInterval:  sampleInterval,
		DisplayInterval: displayInterval,

		LCDDataPins: lcdDataPins,
		LCDRSPin:    getenv("LCD_RS_PIN", "GPIO21"),
		LCDEPin:     getenv("LCD_E_PIN", "GPIO20"),
		LCDCols:     lcdCols,

		MQTTBroker:   getenv("MQTT_BROKER", ""),
		MQTTPort:     mqttPort,
		MQTTClientID: getenv("MQTT_CLIENT_ID", "soilnode-"+stationID),
	}, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %v", key, d)
	}
	return d, nil
}

func parsePinList(s string) ([4]string, error) {
	var pins [4]string
	parts := strings.Split(s, ",")
	if len(parts) != len(pins) {
		return pins, fmt.Errorf("LCD_DATA_PINS needs %d comma-separated pin names, got %d", len(pins), len(parts))
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return pins, fmt.Errorf("LCD_DATA_PINS entry %d is empty", i)
		}
		pins[i] = p
	}
	return pins, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
