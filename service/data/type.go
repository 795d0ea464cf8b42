package data

import "github.com/khaledhikmat/yawn-go/model"

type IService interface {
	NewSession(session model.Session) error
	RetrieveSessions() ([]model.Session, error)
	RetrieveLastSession() (model.Session, bool, error)

	NewError(err interface{}) error
	NewPollerStats(stats model.PollerStats) error
	NewSinkStats(stats model.SinkStats) error
	NewSessionStats(stats model.SessionStats) error
}
