package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegion_CopiesPixels(t *testing.T) {
	f := New(20, 10)
	f.Fill(image.Rect(5, 2, 8, 6), 255, 0, 0)

	region := f.Region(image.Rect(5, 2, 8, 6))
	require.Equal(t, 3, region.Width)
	require.Equal(t, 4, region.Height)

	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			b, g, r := region.BGRAt(x, y)
			assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{b, g, r})
		}
	}

	// the region is a copy
	region.SetBGR(0, 0, 1, 2, 3)
	b, _, _ := f.BGRAt(5, 2)
	assert.Equal(t, uint8(255), b)
}

func TestRegion_ClipsToBounds(t *testing.T) {
	f := New(10, 10)

	region := f.Region(image.Rect(-5, -5, 4, 3))
	assert.Equal(t, 4, region.Width)
	assert.Equal(t, 3, region.Height)

	region = f.Region(image.Rect(8, 8, 50, 50))
	assert.Equal(t, 2, region.Width)
	assert.Equal(t, 2, region.Height)
}

func TestRegion_ZeroArea(t *testing.T) {
	f := New(10, 10)

	tests := map[string]image.Rectangle{
		"degenerate":   image.Rect(3, 3, 3, 8),
		"outside":      image.Rect(20, 20, 30, 30),
		"inverted":     {Min: image.Pt(6, 6), Max: image.Pt(2, 2)},
		"negative box": image.Rect(-10, -10, -1, -1),
	}

	for name, rect := range tests {
		t.Run(name, func(t *testing.T) {
			region := f.Region(rect)
			assert.True(t, region.Empty())
			assert.Equal(t, 0, region.Area())
		})
	}

	var empty *Frame
	assert.True(t, empty.Region(image.Rect(0, 0, 2, 2)).Empty())
}

func TestFromBGR(t *testing.T) {
	_, err := FromBGR(2, 2, make([]uint8, 11))
	assert.ErrorIs(t, err, ErrBufferSize)

	f, err := FromBGR(2, 1, []uint8{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	b, g, r := f.BGRAt(1, 0)
	assert.Equal(t, [3]uint8{4, 5, 6}, [3]uint8{b, g, r})
}

func TestFromImage_SwapsChannels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	f := FromImage(img)
	b, g, r := f.BGRAt(1, 1)
	assert.Equal(t, [3]uint8{50, 100, 200}, [3]uint8{b, g, r})

	// and back through image.Image
	assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, f.At(1, 1))
}

func TestDownsample(t *testing.T) {
	f := New(400, 200)
	f.Fill(f.Bounds(), 10, 20, 30)

	small := f.Downsample(100)
	assert.Equal(t, 100, small.Width)
	assert.Equal(t, 50, small.Height)

	b, g, r := small.BGRAt(50, 25)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{b, g, r})

	assert.Same(t, f, f.Downsample(0))
	assert.Same(t, f, f.Downsample(400))
}

func TestDecode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	f, format, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	b, g, r := f.BGRAt(0, 0)
	assert.Equal(t, [3]uint8{0, 0, 255}, [3]uint8{b, g, r})

	_, _, err = Decode([]byte("not an image"))
	assert.Error(t, err)
}
