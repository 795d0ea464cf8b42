package mode

import (
	"context"

	"github.com/khaledhikmat/yawn-go/pipeline"
)

// Detect watches the configured camera and asks the landmark service for the
// mouth of every sampled frame.
func Detect(canxCtx context.Context, svcs pipeline.ServicesFactory, sinks []pipeline.Sink) error {
	return run(canxCtx, "detect", svcs, sinks)
}
