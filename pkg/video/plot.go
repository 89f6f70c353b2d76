package video

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/analyzer"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/colors"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/frame"
	"gocv.io/x/gocv"
)

//toRGBA maps a BGR color onto gocv's color argument, which gocv itself lays out as B,G,R
func toRGBA(c colors.BGR) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0}
}

//Render plots the draw instructions of one analyzed frame on it, in order
func Render(mat *gocv.Mat, geometry []analyzer.DrawInstruction) {
	for _, inst := range geometry {
		switch inst.Kind {
		case analyzer.DrawRectangle:
			gocv.Rectangle(mat, inst.Box.Rect(), toRGBA(inst.Color), inst.Thickness)

		case analyzer.DrawText:
			gocv.PutText(mat, inst.Text, inst.Origin, gocv.FontHersheySimplex, inst.Scale, toRGBA(inst.Color), inst.Thickness)

		case analyzer.DrawSummary:
			for i, line := range inst.Lines {
				origin := image.Pt(inst.Origin.X, inst.Origin.Y+i*inst.LineSpacing)
				gocv.PutText(mat, line, origin, gocv.FontHersheySimplex, inst.Scale, toRGBA(inst.Color), inst.Thickness)
			}
		}
	}
}

//AnnotateImage renders geometry on a copy of f and writes it to outPath, the format follows the extension
func AnnotateImage(f *frame.Frame, geometry []analyzer.DrawInstruction, outPath string) error {
	if f.Empty() {
		return errors.New("AnnotateImage: Empty frame")
	}

	mat, err := FrameToMat(f)
	if err != nil {
		return fmt.Errorf("AnnotateImage: %w", err)
	}
	defer mat.Close()

	Render(&mat, geometry)

	if !gocv.IMWrite(outPath, mat) {
		return fmt.Errorf("AnnotateImage: Could not write '%s'", outPath)
	}

	return nil
}
