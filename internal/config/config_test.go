package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("WIFI_SSID", "field-net")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.SerialDevice != "/dev/ttyUSB0" {
		t.Errorf("SerialDevice = %q, want /dev/ttyUSB0", got.SerialDevice)
	}
	if got.SerialBaud != 4800 {
		t.Errorf("SerialBaud = %d, want 4800", got.SerialBaud)
	}
	if got.SampleInterval != 30*time.Second {
		t.Errorf("SampleInterval = %v, want 30s", got.SampleInterval)
	}
	if got.DisplayInterval != 3*time.Second {
		t.Errorf("DisplayInterval = %v, want 3s", got.DisplayInterval)
	}
	if got.LCDCols != 16 {
		t.Errorf("LCDCols = %d, want 16", got.LCDCols)
	}
	if got.PredictPort != 5000 {
		t.Errorf("PredictPort = %d, want 5000", got.PredictPort)
	}
	if got.MQTTBroker != "" {
		t.Errorf("MQTTBroker = %q, want empty (mirror disabled)", got.MQTTBroker)
	}
	if got.MQTTClientID != "soilnode-field-1" {
		t.Errorf("MQTTClientID = %q, want soilnode-field-1", got.MQTTClientID)
	}
}

func TestLoadFromEnv_RequiresSSID(t *testing.T) {
	t.Setenv("WIFI_SSID", "")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("LoadFromEnv() error = nil, want error for missing WIFI_SSID")
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad app env", key: "APP_ENV", val: "staging"},
		{name: "bad log level", key: "LOG_LEVEL", val: "verbose"},
		{name: "bad baud", key: "SERIAL_BAUD", val: "fast"},
		{name: "bad settle", key: "BUS_SETTLE", val: "soon"},
		{name: "negative settle", key: "BUS_SETTLE", val: "-1s"},
		{name: "zero sample interval", key: "SAMPLE_INTERVAL", val: "0s"},
		{name: "zero lcd cols", key: "LCD_COLS", val: "0"},
		{name: "short pin list", key: "LCD_DATA_PINS", val: "GPIO1,GPIO2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WIFI_SSID", "field-net")
			t.Setenv(tt.key, tt.val)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("LoadFromEnv() error = nil, want error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("WIFI_SSID", "barn")
	t.Setenv("WIFI_PSK", "haystack")
	t.Setenv("SERIAL_DEVICE", "/dev/ttyAMA0")
	t.Setenv("BUS_DIR_PIN", "GPIO4")
	t.Setenv("SAMPLE_INTERVAL", "2m")
	t.Setenv("LCD_DATA_PINS", " GPIO5 ,GPIO6,GPIO7,GPIO8")
	t.Setenv("PREDICT_HOST", "10.0.0.2")
	t.Setenv("MQTT_BROKER", "10.0.0.3")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.WifiSSID != "barn" || got.WifiPSK != "haystack" {
		t.Errorf("wifi = %q/%q, want barn/haystack", got.WifiSSID, got.WifiPSK)
	}
	if got.SerialDevice != "/dev/ttyAMA0" {
		t.Errorf("SerialDevice = %q, want /dev/ttyAMA0", got.SerialDevice)
	}
	if got.SampleInterval != 2*time.Minute {
		t.Errorf("SampleInterval = %v, want 2m", got.SampleInterval)
	}
	if got.LCDDataPins != [4]string{"GPIO5", "GPIO6", "GPIO7", "GPIO8"} {
		t.Errorf("LCDDataPins = %v, want trimmed pin names", got.LCDDataPins)
	}
	if got.PredictHost != "10.0.0.2" {
		t.Errorf("PredictHost = %q, want 10.0.0.2", got.PredictHost)
	}
	if got.MQTTBroker != "10.0.0.3" {
		t.Errorf("MQTTBroker = %q, want 10.0.0.3", got.MQTTBroker)
	}
}
