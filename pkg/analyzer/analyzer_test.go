package analyzer

import (
	"encoding/json"
	"image"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/colors"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/detection"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/frame"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer(t *testing.T, cfg Config, opts ...Option) (*Analyzer, *logtest.Hook) {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	a, err := New(cfg, append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)

	return a, hook
}

//scenarioFrame paints a pure blue box at (0,0)-(10,10) and a pure red one at (20,20)-(30,30) on gray
func scenarioFrame() *frame.Frame {
	f := frame.New(60, 60)
	f.Fill(f.Bounds(), 128, 128, 128)
	f.Fill(image.Rect(0, 0, 10, 10), 255, 0, 0)
	f.Fill(image.Rect(20, 20, 30, 30), 0, 0, 255)
	return f
}

func scenarioDetections() []detection.Detection {
	return []detection.Detection{
		{ClassID: 2, Confidence: 0.9, Box: detection.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}},
		{ClassID: 2, Confidence: 0.6, Box: detection.Box{X1: 20, Y1: 20, X2: 30, Y2: 30}},
		{ClassID: 0, Confidence: 0.8, Box: detection.Box{X1: 40, Y1: 40, X2: 50, Y2: 50}},
	}
}

func TestAnalyze_Scenario(t *testing.T) {
	a, _ := newTestAnalyzer(t, DefaultConfig())

	result := a.Analyze(scenarioFrame(), scenarioDetections())

	assert.Equal(t, 2, result.TotalVehicles)
	assert.Equal(t, 1, result.BlueVehicles)
	assert.Equal(t, 1, result.OtherVehicles)
	assert.Equal(t, 0, result.UnclassifiedVehicles)
	assert.Equal(t, 1, result.TotalPedestrians)
	assert.Equal(t, map[colors.Category]int{colors.Blue: 1, colors.Red: 1}, result.ColorHistogram)
	assert.InDelta(t, 0.75, result.AvgVehicleConfidence, 1e-9)
	assert.InDelta(t, 0.8, result.AvgPedestrianConfidence, 1e-9)
	assert.Empty(t, result.Failures)

	require.Len(t, result.Vehicles, 2)
	assert.Equal(t, colors.BGR{B: 255}, result.Vehicles[0].DominantColor)
	assert.Equal(t, colors.Blue, result.Vehicles[0].Category)
	assert.Equal(t, colors.BGR{R: 255}, result.Vehicles[1].DominantColor)
	assert.Equal(t, colors.Red, result.Vehicles[1].Category)
}

func TestAnalyze_ScenarioGeometry(t *testing.T) {
	a, _ := newTestAnalyzer(t, DefaultConfig())
	style := DefaultStyle()

	geometry := a.Analyze(scenarioFrame(), scenarioDetections()).Geometry
	require.Len(t, geometry, 7)

	assert.Equal(t, DrawInstruction{Kind: DrawRectangle, Box: detection.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, Color: style.BlueVehicleColor, Thickness: 3}, geometry[0])
	assert.Equal(t, "Blue Car (0.90)", geometry[1].Text)
	assert.Equal(t, image.Pt(0, -10), geometry[1].Origin)
	assert.Equal(t, style.BlueVehicleColor, geometry[1].Color)

	assert.Equal(t, style.OtherVehicleColor, geometry[2].Color)
	assert.Equal(t, "Red Car (0.60)", geometry[3].Text)

	assert.Equal(t, DrawRectangle, geometry[4].Kind)
	assert.Equal(t, style.PedestrianColor, geometry[4].Color)
	assert.Equal(t, 2, geometry[4].Thickness)
	assert.Equal(t, "Person (0.80)", geometry[5].Text)
	assert.Equal(t, image.Pt(40, 30), geometry[5].Origin)

	summary := geometry[6]
	assert.Equal(t, DrawSummary, summary.Kind)
	assert.Equal(t, []string{"Cars: 2 | Blue Cars: 1 | Other Cars: 1", "People: 1"}, summary.Lines)
	assert.Equal(t, style.TextColor, summary.Color)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	a, _ := newTestAnalyzer(t, DefaultConfig())

	for name, dets := range map[string][]detection.Detection{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			result := a.Analyze(scenarioFrame(), dets)

			assert.Zero(t, result.TotalVehicles)
			assert.Zero(t, result.BlueVehicles)
			assert.Zero(t, result.OtherVehicles)
			assert.Zero(t, result.TotalPedestrians)
			assert.Equal(t, 0.0, result.AvgVehicleConfidence)
			assert.Equal(t, 0.0, result.AvgPedestrianConfidence)
			assert.False(t, math.IsNaN(result.AvgVehicleConfidence))
			assert.NotNil(t, result.ColorHistogram)
			assert.Empty(t, result.ColorHistogram)

			require.Len(t, result.Geometry, 1)
			assert.Equal(t, DrawSummary, result.Geometry[0].Kind)
			assert.Equal(t, "Cars: 0 | Blue Cars: 0 | Other Cars: 0", result.Geometry[0].Lines[0])
		})
	}
}

func TestAnalyze_HistogramInvariant(t *testing.T) {
	pure := []colors.BGR{
		{B: 255},                 //blue
		{R: 255},                 //red
		{G: 255},                 //green
		{G: 255, R: 255},         //yellow
		{B: 255, G: 255, R: 255}, //white
		{},                       //black
		{B: 128, G: 128, R: 128}, //gray
		{B: 255},
	}

	f := frame.New(20*len(pure), 20)
	dets := make([]detection.Detection, 0, len(pure))
	for i, c := range pure {
		box := detection.Box{X1: i * 20, Y1: 0, X2: i*20 + 15, Y2: 15}
		f.Fill(box.Rect(), c.B, c.G, c.R)
		dets = append(dets, detection.Detection{ClassID: detection.COCOCarClass, Confidence: 0.7, Box: box})
	}

	a, _ := newTestAnalyzer(t, DefaultConfig())
	result := a.Analyze(f, dets)

	assert.Equal(t, len(pure), result.TotalVehicles)
	assert.Equal(t, len(pure), result.HistogramTotal())
	assert.Equal(t, result.TotalVehicles, result.BlueVehicles+result.OtherVehicles)
	assert.Equal(t, 2, result.BlueVehicles)
	assert.NotContains(t, result.ColorHistogram, colors.Other)
	for category := range result.ColorHistogram {
		assert.True(t, category.Valid())
	}
}

func TestAnalyze_PartialFailure(t *testing.T) {
	a, hook := newTestAnalyzer(t, DefaultConfig())

	dets := append(scenarioDetections(),
		detection.Detection{ClassID: 2, Confidence: 0.7, Box: detection.Box{X1: 5, Y1: 5, X2: 5, Y2: 20}},     //zero width
		detection.Detection{ClassID: 2, Confidence: 0.7, Box: detection.Box{X1: 100, Y1: 100, X2: 120, Y2: 130}}, //outside the frame
	)

	var result FrameAnalysisResult
	require.NotPanics(t, func() {
		result = a.Analyze(scenarioFrame(), dets)
	})

	assert.Equal(t, 4, result.TotalVehicles)
	assert.Equal(t, 2, result.UnclassifiedVehicles)
	assert.Equal(t, 1, result.BlueVehicles)
	assert.Equal(t, 1, result.OtherVehicles)
	assert.Equal(t, 2, result.HistogramTotal())
	assert.Equal(t, result.TotalVehicles, result.BlueVehicles+result.OtherVehicles+result.UnclassifiedVehicles)
	assert.InDelta(t, (0.9+0.6+0.7+0.7)/4, result.AvgVehicleConfidence, 1e-9)

	require.Len(t, result.Failures, 2)
	assert.Contains(t, result.Failures[0].Reason, colors.ErrEmptyRegion.Error())

	// failed vehicles are still drawn, without a color in the label
	assert.Contains(t, result.Geometry, DrawInstruction{Kind: DrawText, Origin: image.Pt(5, -5), Text: "Car (0.70)", Color: DefaultStyle().OtherVehicleColor, Thickness: 2, Scale: 0.6})

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestAnalyze_NilFrame(t *testing.T) {
	a, _ := newTestAnalyzer(t, DefaultConfig())

	result := a.Analyze(nil, scenarioDetections())
	assert.Equal(t, 2, result.TotalVehicles)
	assert.Equal(t, 2, result.UnclassifiedVehicles)
	assert.Empty(t, result.ColorHistogram)
	assert.Equal(t, 1, result.TotalPedestrians)
}

func TestAnalyze_OverriddenThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceThreshold = 0.8
	a, _ := newTestAnalyzer(t, cfg)

	result := a.Analyze(scenarioFrame(), scenarioDetections())
	assert.Equal(t, 1, result.TotalVehicles)
	assert.Equal(t, 1, result.BlueVehicles)
	assert.Equal(t, 0, result.TotalPedestrians) //0.8 is not > 0.8
	assert.InDelta(t, 0.9, result.AvgVehicleConfidence, 1e-9)

	// the default configuration is untouched
	assert.Equal(t, 0.5, DefaultConfig().ConfidenceThreshold)
}

func TestAnalyze_LargeRegionIsDownsampled(t *testing.T) {
	f := frame.New(800, 600)
	f.Fill(f.Bounds(), 0, 200, 0)

	cfg := DefaultConfig()
	cfg.MaxRegionSide = 50
	a, _ := newTestAnalyzer(t, cfg)

	result := a.Analyze(f, []detection.Detection{{ClassID: 2, Confidence: 0.9, Box: detection.Box{X1: 0, Y1: 0, X2: 800, Y2: 600}}})
	require.Len(t, result.Vehicles, 1)
	assert.Equal(t, colors.BGR{G: 200}, result.Vehicles[0].DominantColor)
	assert.Equal(t, colors.Green, result.Vehicles[0].Category)
}

func TestAnalyze_ConcurrentFrames(t *testing.T) {
	a, _ := newTestAnalyzer(t, DefaultConfig())
	want := a.Analyze(scenarioFrame(), scenarioDetections())

	var wg sync.WaitGroup
	results := make([]FrameAnalysisResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.Analyze(scenarioFrame(), scenarioDetections())
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

type countingRecorder struct {
	mu     sync.Mutex
	frames int
}

func (r *countingRecorder) ObserveFrame(_ *FrameAnalysisResult, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
}

func TestAnalyze_Recorder(t *testing.T) {
	rec := &countingRecorder{}
	a, _ := newTestAnalyzer(t, DefaultConfig(), WithRecorder(rec))

	a.Analyze(scenarioFrame(), nil)
	a.Analyze(scenarioFrame(), scenarioDetections())
	assert.Equal(t, 2, rec.frames)
}

func TestAnalyze_ResultJSON(t *testing.T) {
	a, _ := newTestAnalyzer(t, DefaultConfig())

	raw, err := json.Marshal(a.Analyze(scenarioFrame(), scenarioDetections()))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, map[string]interface{}{"blue": 1.0, "red": 1.0}, decoded["color_histogram"])
	assert.Equal(t, 2.0, decoded["total_vehicles"])
	assert.Len(t, decoded["annotated_geometry"], 7)
}

func TestNew_InvalidConfiguration(t *testing.T) {
	tests := map[string]func(*Config){
		"same class ids":       func(c *Config) { c.PedestrianClassID = c.VehicleClassID },
		"threshold above one":  func(c *Config) { c.ConfidenceThreshold = 1.5 },
		"negative threshold":   func(c *Config) { c.ConfidenceThreshold = -0.1 },
		"NaN threshold":        func(c *Config) { c.ConfidenceThreshold = math.NaN() },
		"no clusters":          func(c *Config) { c.ClusterCount = 0 },
		"no attempts":          func(c *Config) { c.ClusterAttempts = 0 },
		"empty rule table":     func(c *Config) { c.Rules = nil },
		"unknown category":     func(c *Config) { c.Rules = []colors.Rule{{Category: "purple", Ranges: []colors.HSVRange{{HueHigh: 10}}}} },
		"zero stroke":          func(c *Config) { c.Style.VehicleThickness = 0 },
		"negative region side": func(c *Config) { c.MaxRegionSide = -1 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)

			a, err := New(cfg)
			assert.Nil(t, a)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestNew_ConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	a, _ := newTestAnalyzer(t, cfg)

	cfg.Rules[0].Category = colors.Green
	got := a.Config()
	assert.Equal(t, colors.Blue, got.Rules[0].Category)

	got.Rules[0].Category = colors.Green
	assert.Equal(t, colors.Blue, a.Config().Rules[0].Category)
}
