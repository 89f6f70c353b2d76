package colors

import (
	"image"
	"math/rand"
	"testing"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformRegion(w, h int, c BGR) *frame.Frame {
	f := frame.New(w, h)
	f.Fill(f.Bounds(), c.B, c.G, c.R)
	return f
}

func TestDominant_UniformRegion(t *testing.T) {
	c := BGR{B: 37, G: 180, R: 99}
	region := uniformRegion(12, 7, c)

	for k := 1; k <= 5; k++ {
		got, err := NewExtractor(k, DefaultSeed).Dominant(region)
		require.NoError(t, err)
		assert.Equal(t, c, got, "clusters=%d", k)
	}

	// and the classifier agrees with the hand computed bucket: H=(120+60*(37-99)/143)/2≈47, S=255*143/180≈203, V=180
	assert.Equal(t, HSV{47, 203, 180}, BGRToHSV(c))
	assert.Equal(t, Green, ClassifyBGR(c))
}

func TestDominant_LargestClusterWins(t *testing.T) {
	blue := BGR{B: 255}
	red := BGR{R: 255}
	white := BGR{B: 255, G: 255, R: 255}

	region := uniformRegion(10, 10, blue)
	region.Fill(image.Rect(0, 0, 10, 2), red.B, red.G, red.R)     //20 px
	region.Fill(image.Rect(0, 2, 10, 3), white.B, white.G, white.R) //10 px

	got, err := NewExtractor(DefaultClusters, DefaultSeed).Dominant(region)
	require.NoError(t, err)
	assert.Equal(t, blue, got)
}

func TestDominant_FewerColorsThanClusters(t *testing.T) {
	region := uniformRegion(4, 4, BGR{G: 255})
	region.Fill(image.Rect(0, 0, 4, 1), 0, 0, 255)

	got, err := NewExtractor(5, DefaultSeed).Dominant(region)
	require.NoError(t, err)
	assert.Equal(t, BGR{G: 255}, got)
}

func TestDominant_NoisyRegion(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	region := frame.New(40, 30)
	for y := 0; y < region.Height; y++ {
		for x := 0; x < region.Width; x++ {
			if y < 6 { //windows and shadow
				region.SetBGR(x, y, uint8(rng.Intn(30)), uint8(rng.Intn(30)), uint8(rng.Intn(30)))
				continue
			}
			region.SetBGR(x, y, uint8(200+rng.Intn(20)), uint8(60+rng.Intn(20)), uint8(20+rng.Intn(20)))
		}
	}

	e := NewExtractor(DefaultClusters, DefaultSeed)
	got, err := e.Dominant(region)
	require.NoError(t, err)

	assert.InDelta(t, 209, int(got.B), 10)
	assert.InDelta(t, 69, int(got.G), 10)
	assert.InDelta(t, 29, int(got.R), 10)
	assert.Equal(t, Blue, ClassifyBGR(got))

	again, err := e.Dominant(region)
	require.NoError(t, err)
	assert.Equal(t, got, again, "same seed and input must give the same color")
}

func TestDominant_EmptyRegion(t *testing.T) {
	e := NewExtractor(DefaultClusters, DefaultSeed)

	_, err := e.Dominant(frame.New(0, 5))
	assert.ErrorIs(t, err, ErrEmptyRegion)

	_, err = e.Dominant(nil)
	assert.ErrorIs(t, err, ErrEmptyRegion)
}

func TestLargestCluster(t *testing.T) {
	tests := []struct {
		name   string
		labels []int
		k      int
		want   int
	}{
		{"tie between first two", []int{1, 1, 0, 0, 2}, 3, 0},
		{"tie between last two", []int{2, 1, 2, 1, 0}, 3, 1},
		{"three way tie", []int{2, 0, 1}, 3, 0},
		{"later cluster strictly larger", []int{0, 2, 2, 1, 2}, 3, 2},
		{"single cluster", []int{0, 0}, 1, 0},
		{"empty cluster loses", []int{1}, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, largestCluster(tt.labels, tt.k))
		})
	}
}

func TestDominant_TieIsDeterministic(t *testing.T) {
	region := uniformRegion(4, 2, BGR{R: 255})
	region.Fill(image.Rect(0, 0, 4, 1), 255, 0, 0)

	e := NewExtractor(2, DefaultSeed)
	first, err := e.Dominant(region)
	require.NoError(t, err)
	assert.Contains(t, []BGR{{R: 255}, {B: 255}}, first)

	for i := 0; i < 5; i++ {
		got, err := e.Dominant(region)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}
