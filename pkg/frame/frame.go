package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

//Channels is the number of interleaved bytes per pixel (B, G, R)
const Channels = 3

//ErrBufferSize is returned when a pixel buffer does not match the given dimensions
var ErrBufferSize = errors.New("pixel buffer size does not match frame dimensions")

//Frame is an 8-bit, 3 channel image stored row-major in BGR order, the layout OpenCV uses for its Mats.
//A Frame with zero width or height is valid and represents an empty region.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

//New allocates a black frame of the given size
func New(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	return &Frame{Width: width, Height: height, Pix: make([]uint8, width*height*Channels)}
}

//FromBGR wraps an existing BGR buffer (for example the bytes of a gocv.Mat) without copying it
func FromBGR(width, height int, pix []uint8) (*Frame, error) {
	if width < 0 || height < 0 || len(pix) != width*height*Channels {
		return nil, fmt.Errorf("FromBGR: %dx%d with %d bytes: %w", width, height, len(pix), ErrBufferSize)
	}

	return &Frame{Width: width, Height: height, Pix: pix}, nil
}

//FromImage copies any image.Image into a new Frame. Alpha is ignored.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy())

	if rgba, ok := img.(*image.RGBA); ok { //fast path, used by Downsample
		for y := 0; y < f.Height; y++ {
			src := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := f.Pix[y*f.Width*Channels:]
			for x := 0; x < f.Width; x++ {
				dst[x*Channels], dst[x*Channels+1], dst[x*Channels+2] = src[x*4+2], src[x*4+1], src[x*4]
			}
		}
		return f
	}

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			f.SetBGR(x, y, uint8(bl>>8), uint8(g>>8), uint8(r>>8))
		}
	}

	return f
}

//Empty reports whether the frame has no pixels
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0
}

//Area returns the number of pixels
func (f *Frame) Area() int {
	if f.Empty() {
		return 0
	}
	return f.Width * f.Height
}

func (f *Frame) offset(x, y int) int {
	return (y*f.Width + x) * Channels
}

//BGRAt returns the pixel at (x, y). Coordinates must be inside the frame.
func (f *Frame) BGRAt(x, y int) (b, g, r uint8) {
	i := f.offset(x, y)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

//SetBGR sets the pixel at (x, y). Coordinates must be inside the frame.
func (f *Frame) SetBGR(x, y int, b, g, r uint8) {
	i := f.offset(x, y)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
}

//Fill paints rect (clipped to the frame) with one color
func (f *Frame) Fill(rect image.Rectangle, b, g, r uint8) {
	rect = rect.Intersect(f.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			f.SetBGR(x, y, b, g, r)
		}
	}
}

//Region copies the pixels inside rect into a new Frame. rect is clipped to the frame's bounds first,
//so boxes reaching outside the frame (common with detector output) shrink instead of failing.
//A rect with no overlap, or an inverted one (Min > Max), yields an empty Frame.
func (f *Frame) Region(rect image.Rectangle) *Frame {
	if f.Empty() {
		return New(0, 0)
	}

	rect = rect.Intersect(f.Bounds()) //an inverted rect intersects to the zero rectangle
	if rect.Empty() {
		return New(0, 0)
	}

	region := New(rect.Dx(), rect.Dy())
	rowBytes := rect.Dx() * Channels
	for y := 0; y < rect.Dy(); y++ {
		src := f.offset(rect.Min.X, rect.Min.Y+y)
		copy(region.Pix[y*rowBytes:(y+1)*rowBytes], f.Pix[src:src+rowBytes])
	}

	return region
}

//Downsample returns a copy scaled so its longer side is at most maxSide pixels, keeping the aspect ratio.
//Frames already small enough (or maxSide <= 0) are returned as is.
func (f *Frame) Downsample(maxSide int) *Frame {
	if f.Empty() || maxSide <= 0 || (f.Width <= maxSide && f.Height <= maxSide) {
		return f
	}

	longer := f.Width
	if f.Height > longer {
		longer = f.Height
	}

	width := f.Width * maxSide / longer
	height := f.Height * maxSide / longer
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), f, f.Bounds(), draw.Src, nil)

	return FromImage(dst)
}

//ColorModel implements image.Image
func (f *Frame) ColorModel() color.Model {
	return color.RGBAModel
}

//Bounds implements image.Image
func (f *Frame) Bounds() image.Rectangle {
	if f == nil {
		return image.Rectangle{}
	}
	return image.Rect(0, 0, f.Width, f.Height)
}

//At implements image.Image
func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(f.Bounds()) {
		return color.RGBA{}
	}

	b, g, r := f.BGRAt(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
