package landmark

import (
	"context"

	"github.com/khaledhikmat/yawn-go/model"
	"github.com/khaledhikmat/yawn-go/yawn"
)

// IService finds the mouth of the most prominent face in a frame. The bool
// result is false when no face was found.
type IService interface {
	Detect(ctx context.Context, frame model.Frame) (yawn.MouthShape, bool, error)
}
