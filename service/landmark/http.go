package landmark

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/service/config"
	"github.com/khaledhikmat/yawn-go/yawn"
	"golang.org/x/xerrors"
)

const maxResponseSize = 1 << 20

type face struct {
	Score     float64              `json:"score"`
	Landmarks []yawn.LandmarkPoint `json:"landmarks"`
}

type detectResponse struct {
	Faces []face `json:"faces"`
}

type httpService struct {
	CfgSvc config.IService
	client *http.Client
}

// NewHTTP sends each frame as a JPEG body to an external landmark detector.
// The detector answers with {"faces":[{"score":0.9,"landmarks":[{"x":1,"y":2},...]}]}
// where landmarks hold either the 68 face points or only the 20 mouth points.
func NewHTTP(cfgsvc config.IService) IService {
	return &httpService{
		CfgSvc: cfgsvc,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   2 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (svc *httpService) Detect(ctx context.Context, frame model.Frame) (yawn.MouthShape, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.CfgSvc.GetLandmarkURL(), bytes.NewReader(frame.Data))
	if err != nil {
		return nil, false, xerrors.Errorf("build landmark request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := svc.client.Do(req)
	if err != nil {
		return nil, false, xerrors.Errorf("call landmark detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, xerrors.Errorf("landmark detector responded %d", resp.StatusCode)
	}

	var body detectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, false, xerrors.Errorf("decode landmark response: %w", err)
	}

	return mouthOf(body.Faces)
}

// mouthOf picks the highest scoring face and returns its mouth.
func mouthOf(faces []face) (yawn.MouthShape, bool, error) {
	if len(faces) == 0 {
		return nil, false, nil
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if f.Score > best.Score {
			best = f
		}
	}

	if len(best.Landmarks) == yawn.MouthPoints {
		return yawn.MouthShape(best.Landmarks), true, nil
	}

	mouth, err := yawn.MouthFromFace68(best.Landmarks)
	if err != nil {
		return nil, true, err
	}
	return mouth, true, nil
}
