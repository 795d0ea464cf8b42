package config

import "time"

type IService interface {
	GetModeMaxShutdownTime() int
	GetSessionHeartbeatPeriod() int
	GetResetOnRestart() bool

	GetPollPeriod() time.Duration
	GetDetectTimeout() time.Duration
	GetYawnThreshold() float64
	GetAlertThreshold() int

	GetCameraDevice() int
	GetCameraWidth() int
	GetCameraHeight() int
	GetLandmarkURL() string

	GetWebhookURL() string
	GetWebEnabled() bool
	GetWebAddress() string

	GetDataFolder() string
	GetRecordingsFolder() string
	GetLogsFolder() string
	GetLogLevel() string
}

// Settings holds every tunable. Field defaults come from Defaults.
type Settings struct {
	ModeMaxShutdownSecs  int
	SessionHeartbeatSecs int
	ResetOnRestart       bool

	PollPeriodMs    int
	DetectTimeoutMs int
	YawnThreshold   float64
	AlertThreshold  int

	CameraDevice int
	CameraWidth  int
	CameraHeight int
	LandmarkURL  string

	WebhookURL string
	WebEnabled bool
	WebAddress string

	DataFolder       string
	RecordingsFolder string
	LogsFolder       string
	LogLevel         string
}

func Defaults() Settings {
	return Settings{
		ModeMaxShutdownSecs:  5,
		SessionHeartbeatSecs: 30,
		ResetOnRestart:       true,
		PollPeriodMs:         100,
		DetectTimeoutMs:      500,
		YawnThreshold:        0.6,
		AlertThreshold:       5,
		CameraDevice:         0,
		CameraWidth:          640,
		CameraHeight:         480,
		LandmarkURL:          "http://localhost:8500/landmarks",
		WebEnabled:           true,
		WebAddress:           ":8080",
		DataFolder:           "./data",
		RecordingsFolder:     "./recordings",
		LogsFolder:           "./logs",
		LogLevel:             "info",
	}
}
