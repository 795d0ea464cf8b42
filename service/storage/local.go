package storage

import (
	"os"
	"path/filepath"

	"github.com/khaledhikmat/yawn-go/service/config"
	"golang.org/x/xerrors"
)

type localService struct {
	CfgSvc config.IService
}

// NewLocal stores files in the recordings folder.
func NewLocal(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

func (svc *localService) StoreFile(name string, data []byte) (string, error) {
	if filepath.Base(name) != name || name == "." || name == ".." {
		return "", xerrors.Errorf("invalid file name %q", name)
	}

	folder := svc.CfgSvc.GetRecordingsFolder()
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", xerrors.Errorf("create recordings folder: %w", err)
	}

	path := filepath.Join(folder, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", xerrors.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
