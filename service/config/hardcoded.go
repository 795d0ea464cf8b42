package config

import "time"

type hardcodedService struct {
	settings Settings
}

// NewHardCoded serves a fixed set of settings. Simulation and tests use it.
func NewHardCoded(settings Settings) IService {
	return &hardcodedService{
		settings: settings,
	}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return svc.settings.ModeMaxShutdownSecs
}

func (svc *hardcodedService) GetSessionHeartbeatPeriod() int {
	return svc.settings.SessionHeartbeatSecs
}

func (svc *hardcodedService) GetResetOnRestart() bool {
	return svc.settings.ResetOnRestart
}

func (svc *hardcodedService) GetPollPeriod() time.Duration {
	return time.Duration(svc.settings.PollPeriodMs) * time.Millisecond
}

func (svc *hardcodedService) GetDetectTimeout() time.Duration {
	return time.Duration(svc.settings.DetectTimeoutMs) * time.Millisecond
}

func (svc *hardcodedService) GetYawnThreshold() float64 {
	return svc.settings.YawnThreshold
}

func (svc *hardcodedService) GetAlertThreshold() int {
	return svc.settings.AlertThreshold
}

func (svc *hardcodedService) GetCameraDevice() int {
	return svc.settings.CameraDevice
}

func (svc *hardcodedService) GetCameraWidth() int {
	return svc.settings.CameraWidth
}

func (svc *hardcodedService) GetCameraHeight() int {
	return svc.settings.CameraHeight
}

func (svc *hardcodedService) GetLandmarkURL() string {
	return svc.settings.LandmarkURL
}

func (svc *hardcodedService) GetWebhookURL() string {
	return svc.settings.WebhookURL
}

func (svc *hardcodedService) GetWebEnabled() bool {
	return svc.settings.WebEnabled
}

func (svc *hardcodedService) GetWebAddress() string {
	return svc.settings.WebAddress
}

func (svc *hardcodedService) GetDataFolder() string {
	return svc.settings.DataFolder
}

func (svc *hardcodedService) GetRecordingsFolder() string {
	return svc.settings.RecordingsFolder
}

func (svc *hardcodedService) GetLogsFolder() string {
	return svc.settings.LogsFolder
}

func (svc *hardcodedService) GetLogLevel() string {
	return svc.settings.LogLevel
}
