// Package cv provides OpenCV backed frame sources.
package cv

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/camera"
	"github.com/khaledhikmat/yawn-go/service/config"
	"github.com/khaledhikmat/yawn-go/service/lgr"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

type webcamService struct {
	CfgSvc  config.IService
	mu      sync.Mutex
	capture *gocv.VideoCapture
	img     gocv.Mat
	seq     int64
}

func NewWebcam(cfgsvc config.IService) camera.IService {
	return &webcamService{
		CfgSvc: cfgsvc,
	}
}

func (svc *webcamService) Open() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(svc.CfgSvc.GetCameraDevice())
	if err != nil {
		return xerrors.Errorf("open camera device %d: %w", svc.CfgSvc.GetCameraDevice(), err)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(svc.CfgSvc.GetCameraWidth()))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(svc.CfgSvc.GetCameraHeight()))

	svc.capture = capture
	svc.img = gocv.NewMat()

	lgr.Logger.Info(
		"webcam opened",
		slog.Int("device", svc.CfgSvc.GetCameraDevice()),
		slog.Float64("width", capture.Get(gocv.VideoCaptureFrameWidth)),
		slog.Float64("height", capture.Get(gocv.VideoCaptureFrameHeight)),
		slog.String("openCV", gocv.Version()),
	)
	return nil
}

func (svc *webcamService) Read(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.capture == nil {
		return model.Frame{}, xerrors.New("camera is not open")
	}

	// The device may need a few reads before it delivers data
	if ok := svc.capture.Read(&svc.img); !ok || svc.img.Empty() {
		return model.Frame{}, camera.ErrNotReady
	}

	return encodeFrame(svc.img, &svc.seq)
}

func (svc *webcamService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.capture == nil {
		return nil
	}

	svc.img.Close() // Crucial to close the image to avoid memory leaks
	err := svc.capture.Close()
	svc.capture = nil
	return err
}

func encodeFrame(img gocv.Mat, seq *int64) (model.Frame, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return model.Frame{}, xerrors.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	*seq++
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	return model.Frame{
		Seq:       *seq,
		Data:      data,
		Width:     img.Cols(),
		Height:    img.Rows(),
		Timestamp: time.Now(),
	}, nil
}
