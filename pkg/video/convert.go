package video

import (
	"fmt"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/frame"
	"gocv.io/x/gocv"
)

//MatToFrame copies an 8-bit, 3 channel BGR Mat into a Frame
func MatToFrame(mat gocv.Mat) (*frame.Frame, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("MatToFrame: Empty mat")
	}
	if mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("MatToFrame: Unsupported mat type %v", mat.Type())
	}

	return frame.FromBGR(mat.Cols(), mat.Rows(), mat.ToBytes())
}

//FrameToMat copies a Frame into a new Mat. The caller closes it.
func FrameToMat(f *frame.Frame) (gocv.Mat, error) {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)

	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, pix)
	if err != nil {
		return mat, fmt.Errorf("FrameToMat: %w", err)
	}

	//the Mat refers to pix, give it its own memory
	owned := mat.Clone()
	mat.Close()

	return owned, nil
}
