package config

import (
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/khaledhikmat/yawn-go/service/lgr"
)

// NewEnv reads settings from the environment on top of Defaults.
// Unparsable values are logged and ignored.
func NewEnv() IService {
	return NewHardCoded(FromEnv(Defaults()))
}

func FromEnv(s Settings) Settings {
	readEnvInt("MODE_MAX_SHUTDOWN_SECS", &s.ModeMaxShutdownSecs)
	readEnvInt("SESSION_HEARTBEAT_SECS", &s.SessionHeartbeatSecs)
	readEnvBool("RESET_ON_RESTART", &s.ResetOnRestart)
	readEnvInt("POLL_PERIOD_MS", &s.PollPeriodMs)
	readEnvInt("DETECT_TIMEOUT_MS", &s.DetectTimeoutMs)
	readEnvFloat("YAWN_THRESHOLD", &s.YawnThreshold)
	readEnvInt("ALERT_THRESHOLD", &s.AlertThreshold)
	readEnvInt("CAMERA_DEVICE", &s.CameraDevice)
	readEnvInt("CAMERA_WIDTH", &s.CameraWidth)
	readEnvInt("CAMERA_HEIGHT", &s.CameraHeight)
	readEnvString("LANDMARK_URL", &s.LandmarkURL)
	readEnvString("WEBHOOK_URL", &s.WebhookURL)
	readEnvBool("WEB_ENABLED", &s.WebEnabled)
	readEnvString("WEB_ADDRESS", &s.WebAddress)
	readEnvString("DATA_FOLDER", &s.DataFolder)
	readEnvString("RECORDINGS_FOLDER", &s.RecordingsFolder)
	readEnvString("LOGS_FOLDER", &s.LogsFolder)
	readEnvString("LOG_LEVEL", &s.LogLevel)

	// A zero or negative period would spin the poller
	if s.PollPeriodMs <= 0 {
		s.PollPeriodMs = Defaults().PollPeriodMs
	}
	if s.DetectTimeoutMs <= 0 {
		s.DetectTimeoutMs = Defaults().DetectTimeoutMs
	}
	// NaN or Inf would keep the detector from ever firing
	if math.IsNaN(s.YawnThreshold) || math.IsInf(s.YawnThreshold, 0) || s.YawnThreshold <= 0 {
		lgr.Logger.Warn("ignoring invalid yawn threshold", slog.Float64("value", s.YawnThreshold))
		s.YawnThreshold = Defaults().YawnThreshold
	}
	return s
}

func readEnvString(name string, value *string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	*value = v
}

func readEnvBool(name string, value *bool) {
	v := strings.ToLower(os.Getenv(name))
	if v == "true" || v == "1" || v == "yes" || v == "on" {
		*value = true
	} else if v == "false" || v == "0" || v == "no" || v == "off" {
		*value = false
	}
}

func readEnvFloat(name string, value *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		lgr.Logger.Warn("ignoring invalid env var", slog.String("name", name), slog.String("value", v))
		return
	}
	*value = f
}

func readEnvInt(name string, value *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		lgr.Logger.Warn("ignoring invalid env var", slog.String("name", name), slog.String("value", v))
		return
	}
	*value = i
}
