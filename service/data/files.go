package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/config"
	"golang.org/x/xerrors"
)

const (
	sessionsTable     = "sessions"
	errorsTable       = "errors"
	pollerStatsTable  = "poller-stats"
	sinkStatsTable    = "sink-stats"
	sessionStatsTable = "session-stats"
)

// filesDBService keeps one JSON array per table under the data folder.
type filesDBService struct {
	CfgSvc config.IService
	mu     sync.Mutex
}

func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) NewSession(session model.Session) error {
	return svc.newEntity(session, sessionsTable)
}

func (svc *filesDBService) RetrieveSessions() ([]model.Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return retrieveEntities[model.Session](sessionsTable, svc.CfgSvc)
}

func (svc *filesDBService) RetrieveLastSession() (model.Session, bool, error) {
	sessions, err := svc.RetrieveSessions()
	if err != nil {
		return model.Session{}, false, err
	}
	if len(sessions) == 0 {
		return model.Session{}, false, nil
	}
	return sessions[len(sessions)-1], true, nil
}

func (svc *filesDBService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	switch e := err.(type) {
	case model.CustomError:
		customErr = e
	case error:
		customErr.Processor = "N/A"
		customErr.Inner = e
		customErr.Message = e.Error()
		customErr.StackTrace = "N/A"
	default:
		customErr.Processor = "N/A"
		customErr.Message = fmt.Sprintf("%v", e)
		customErr.StackTrace = "N/A"
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	// Create an error object to persist
	errorData := struct {
		Timestamp  int64                  `json:"timestamp"`
		Processor  string                 `json:"processor"`
		Inner      string                 `json:"innerError"`
		Message    string                 `json:"message"`
		StackTrace string                 `json:"stackTrace"`
		Misc       map[string]interface{} `json:"misc"`
	}{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      inner,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
	return svc.newEntity(errorData, errorsTable)
}

func (svc *filesDBService) NewPollerStats(stats model.PollerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, pollerStatsTable)
}

func (svc *filesDBService) NewSinkStats(stats model.SinkStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, sinkStatsTable)
}

func (svc *filesDBService) NewSessionStats(stats model.SessionStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newEntity(stats, sessionStatsTable)
}

func (svc *filesDBService) newEntity(entity interface{}, table string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return newEntity(entity, table, svc.CfgSvc)
}

func tablePath(table string, cfgsvc config.IService) string {
	return filepath.Join(cfgsvc.GetDataFolder(), fmt.Sprintf("%s.json", table))
}

func newEntity[T any](entity T, table string, cfgsvc config.IService) error {
	entities, err := retrieveEntities[T](table, cfgsvc)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return xerrors.Errorf("marshal %s: %w", table, err)
	}

	if err := os.MkdirAll(cfgsvc.GetDataFolder(), 0755); err != nil {
		return xerrors.Errorf("create data folder: %w", err)
	}

	// Write the JSON data to the file (with truncation)
	if err := os.WriteFile(tablePath(table, cfgsvc), data, 0644); err != nil {
		return xerrors.Errorf("write %s: %w", table, err)
	}

	return nil
}

func retrieveEntities[T any](table string, cfgsvc config.IService) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(tablePath(table, cfgsvc))
	if os.IsNotExist(err) {
		// WARNING: File not found, return empty slice
		return entities, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("read %s: %w", table, err)
	}

	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, xerrors.Errorf("unmarshal %s: %w", table, err)
	}

	return entities, nil
}
