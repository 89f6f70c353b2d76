// Package detector runs the external object detection model and converts what it reports into
// detection.Detection values. The model is a black box reached either as a python subprocess or
// as an HTTP inference service.
package detector

import (
	"context"
	"errors"
	"math"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/detection"
)

//ErrUnhealthy is returned by Health when the model cannot serve requests
var ErrUnhealthy = errors.New("detector unhealthy")

//Detector finds objects in one encoded image
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]detection.Detection, error)
	Health(ctx context.Context) error
}

//toBox rounds model coordinates to pixels
func toBox(x1, y1, x2, y2 float64) detection.Box {
	return detection.Box{
		X1: int(math.Round(x1)),
		Y1: int(math.Round(y1)),
		X2: int(math.Round(x2)),
		Y2: int(math.Round(y2)),
	}
}
