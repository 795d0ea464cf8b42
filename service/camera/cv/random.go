package cv

import (
	"context"
	"sync"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/camera"
	"github.com/khaledhikmat/yawn-go/service/config"
	"gocv.io/x/gocv"
)

type randomService struct {
	CfgSvc config.IService
	mu     sync.Mutex
	seq    int64
}

// NewRandom produces noise frames at the configured size. Simulation pairs
// it with a scripted landmark service.
func NewRandom(cfgsvc config.IService) camera.IService {
	return &randomService{
		CfgSvc: cfgsvc,
	}
}

func (svc *randomService) Open() error {
	return nil
}

func (svc *randomService) Read(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	img := gocv.NewMatWithSize(svc.CfgSvc.GetCameraHeight(), svc.CfgSvc.GetCameraWidth(), gocv.MatTypeCV8UC3)
	defer img.Close() // Crucial to close the image to avoid memory leaks

	gocv.RandU(&img, gocv.NewScalar(0, 0, 0, 0), gocv.NewScalar(255, 255, 255, 0))
	return encodeFrame(img, &svc.seq)
}

func (svc *randomService) Close() error {
	return nil
}
