package mode

import (
	"context"

	"github.com/khaledhikmat/yawn-go/pipeline"
	"github.com/khaledhikmat/yawn-go/service/landmark"
)

// Simulate replays a scripted sequence of mouths, looping forever, so the
// pipeline can be exercised without a face in front of the camera.
func Simulate(canxCtx context.Context, svcs pipeline.ServicesFactory, sinks []pipeline.Sink) error {
	svcs.LandmarkSvc = landmark.NewScripted(landmark.YawnScript(), true)
	return run(canxCtx, "simulate", svcs, sinks)
}
