package yawn

import (
	"math"

	"golang.org/x/xerrors"
)

// Mouth landmark indices. The order follows the 68-point face convention
// (points 48..67) re-based to zero.
const (
	MouthLeftCorner  = 0
	MouthRightCorner = 6
	InnerLeftCorner  = 12
	InnerUpperLeft   = 13
	InnerUpperMid    = 14
	InnerUpperRight  = 15
	InnerRightCorner = 16
	InnerLowerRight  = 17
	InnerLowerMid    = 18
	InnerLowerLeft   = 19
	MouthPoints      = 20

	face68Points     = 68
	face68MouthStart = 48
)

var (
	ErrMalformedShape  = xerrors.New("malformed mouth shape")
	ErrDegenerateShape = xerrors.New("degenerate mouth shape")
)

type LandmarkPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MouthShape is the ordered mouth contour of one face in one frame.
type MouthShape []LandmarkPoint

func distance(a, b LandmarkPoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// MouthFromFace68 extracts the 20 mouth points from a 68-point face landmark set.
func MouthFromFace68(face []LandmarkPoint) (MouthShape, error) {
	if len(face) != face68Points {
		return nil, xerrors.Errorf("face has %d landmarks, want %d: %w", len(face), face68Points, ErrMalformedShape)
	}

	mouth := make(MouthShape, MouthPoints)
	copy(mouth, face[face68MouthStart:face68MouthStart+MouthPoints])
	return mouth, nil
}

// ComputeMouthAspectRatio returns the ratio of the three inner lip gaps to
// the mouth width. The result is invariant to translation and uniform scaling.
func ComputeMouthAspectRatio(mouth MouthShape) (float64, error) {
	if len(mouth) != MouthPoints {
		return 0, xerrors.Errorf("mouth has %d points, want %d: %w", len(mouth), MouthPoints, ErrMalformedShape)
	}

	a := distance(mouth[InnerUpperLeft], mouth[InnerLowerLeft])
	b := distance(mouth[InnerUpperRight], mouth[InnerLowerRight])
	c := distance(mouth[InnerLeftCorner], mouth[InnerRightCorner])
	d := distance(mouth[MouthLeftCorner], mouth[MouthRightCorner])

	if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, ErrDegenerateShape
	}

	mar := (a + b + c) / (3 * d)
	if math.IsNaN(mar) || math.IsInf(mar, 0) {
		return 0, ErrDegenerateShape
	}
	return mar, nil
}

// MouthWithGap builds a synthetic mouth centred on (cx, cy) with the given
// width and vertical inner lip gap. It is used to simulate landmark output.
func MouthWithGap(cx, cy, width, gap float64) MouthShape {
	left := cx - width/2
	at := func(fx, dy float64) LandmarkPoint {
		return LandmarkPoint{X: left + fx*width, Y: cy + dy}
	}

	lip := width / 10
	half := gap / 2
	return MouthShape{
		at(0, 0),
		at(0.15, -half-lip),
		at(0.3, -half-lip*1.2),
		at(0.5, -half-lip),
		at(0.7, -half-lip*1.2),
		at(0.85, -half-lip),
		at(1, 0),
		at(0.85, half+lip),
		at(0.7, half+lip*1.2),
		at(0.5, half+lip*1.3),
		at(0.3, half+lip*1.2),
		at(0.15, half+lip),
		at(0.2, 0),
		at(0.35, -half),
		at(0.5, -half),
		at(0.65, -half),
		at(0.8, 0),
		at(0.65, half),
		at(0.5, half),
		at(0.35, half),
	}
}
