package camera

import (
	"context"

	"github.com/khaledhikmat/yawn-go/model"
	"golang.org/x/xerrors"
)

// ErrNotReady is returned while the device has no frame to give yet.
var ErrNotReady = xerrors.New("camera has no frame yet")

type IService interface {
	Open() error
	Read(ctx context.Context) (model.Frame, error)
	Close() error
}
