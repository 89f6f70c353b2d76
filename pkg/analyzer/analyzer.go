// Package analyzer turns one frame plus the detector's raw output into counts, a per-color histogram of the
// vehicles and the draw instructions a rendering layer needs to annotate the frame.
package analyzer

import (
	"fmt"
	"image"
	"time"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/colors"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/detection"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/frame"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

//Recorder receives every finished frame result, used for metrics
type Recorder interface {
	ObserveFrame(result *FrameAnalysisResult, elapsed time.Duration)
}

//Analyzer holds an immutable configuration and no per-frame state. Analyze may be called concurrently.
type Analyzer struct {
	cfg        Config
	classifier *colors.Classifier
	extractor  *colors.Extractor
	log        logrus.FieldLogger
	recorder   Recorder
}

//Option customizes an Analyzer
type Option func(*Analyzer)

//WithLogger sets the logger per-detection failures are reported to
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Analyzer) {
		a.log = l
	}
}

//WithRecorder sets a Recorder called after every analyzed frame
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) {
		a.recorder = r
	}
}

//New validates cfg and builds an Analyzer. The returned error wraps ErrInvalidConfiguration.
func New(cfg Config, opts ...Option) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	classifier, err := colors.NewClassifier(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	cfg.Rules = copyRules(cfg.Rules)

	a := &Analyzer{
		cfg:        cfg,
		classifier: classifier,
		extractor: &colors.Extractor{
			Clusters:      cfg.ClusterCount,
			Seed:          cfg.ClusterSeed,
			Attempts:      cfg.ClusterAttempts,
			MaxIterations: cfg.MaxIterations,
		},
		log: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

//Config returns a copy of the analyzer's configuration
func (a *Analyzer) Config() Config {
	cfg := a.cfg
	cfg.Rules = copyRules(a.cfg.Rules)
	return cfg
}

//Analyze filters detections, classifies the dominant color of every vehicle and aggregates the frame.
//It never fails: a vehicle whose color cannot be extracted is still counted, recorded in Failures and
//left out of the histogram.
func (a *Analyzer) Analyze(f *frame.Frame, detections []detection.Detection) FrameAnalysisResult {
	start := time.Now()

	vehicles, pedestrians := detection.Filter(detections, a.cfg.Classes(), a.cfg.ConfidenceThreshold)

	result := FrameAnalysisResult{
		TotalVehicles:    len(vehicles),
		TotalPedestrians: len(pedestrians),
		ColorHistogram:   make(map[colors.Category]int),
		Vehicles:         make([]VehicleColorResult, 0, len(vehicles)),
		Geometry:         make([]DrawInstruction, 0, 2*(len(vehicles)+len(pedestrians))+1),
	}

	vehicleConfidences := make([]float64, 0, len(vehicles))
	for _, det := range vehicles {
		vehicleConfidences = append(vehicleConfidences, det.Confidence)

		dominant, err := a.dominantColor(f, det)
		if err != nil {
			a.log.WithFields(logrus.Fields{
				"class_id":   det.ClassID,
				"confidence": det.Confidence,
				"box":        det.Box,
			}).Warnf("Analyze: Could not classify vehicle color, got '%v'. Skipping.", err)

			result.UnclassifiedVehicles++
			result.Failures = append(result.Failures, DetectionFailure{Detection: det, Reason: err.Error()})
			result.Geometry = append(result.Geometry, a.vehicleGeometry(det, "", false)...)
			continue
		}

		category := a.classifier.ClassifyBGR(dominant)
		result.ColorHistogram[category]++
		if category == colors.Blue {
			result.BlueVehicles++
		} else {
			result.OtherVehicles++
		}

		result.Vehicles = append(result.Vehicles, VehicleColorResult{Detection: det, DominantColor: dominant, Category: category})
		result.Geometry = append(result.Geometry, a.vehicleGeometry(det, category, true)...)
	}

	pedestrianConfidences := make([]float64, 0, len(pedestrians))
	for _, det := range pedestrians {
		pedestrianConfidences = append(pedestrianConfidences, det.Confidence)
		result.Geometry = append(result.Geometry, a.pedestrianGeometry(det)...)
	}

	result.AvgVehicleConfidence = mean(vehicleConfidences)
	result.AvgPedestrianConfidence = mean(pedestrianConfidences)
	result.Geometry = append(result.Geometry, a.summaryGeometry(&result))

	if a.recorder != nil {
		a.recorder.ObserveFrame(&result, time.Since(start))
	}

	return result
}

//dominantColor extracts det's region and clusters it. Panics from a malformed box are turned into errors
//so one detection can never take the whole frame down.
func (a *Analyzer) dominantColor(f *frame.Frame, det detection.Detection) (dominant colors.BGR, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dominantColor: recovered from '%v'", r)
		}
	}()

	region := f.Region(det.Box.Rect())
	if region.Empty() {
		return colors.BGR{}, fmt.Errorf("box %v has no pixels inside the frame: %w", det.Box, colors.ErrEmptyRegion)
	}

	return a.extractor.Dominant(region.Downsample(a.cfg.MaxRegionSide))
}

func (a *Analyzer) vehicleGeometry(det detection.Detection, category colors.Category, classified bool) []DrawInstruction {
	style := a.cfg.Style

	stroke := style.OtherVehicleColor
	label := fmt.Sprintf("Car (%.2f)", det.Confidence)
	if classified {
		label = fmt.Sprintf("%s Car (%.2f)", category.Title(), det.Confidence)
		if category == colors.Blue {
			stroke = style.BlueVehicleColor
		}
	}

	return []DrawInstruction{
		{Kind: DrawRectangle, Box: det.Box, Color: stroke, Thickness: style.VehicleThickness},
		{Kind: DrawText, Origin: labelOrigin(det.Box), Text: label, Color: stroke, Thickness: 2, Scale: style.LabelScale},
	}
}

func (a *Analyzer) pedestrianGeometry(det detection.Detection) []DrawInstruction {
	style := a.cfg.Style

	return []DrawInstruction{
		{Kind: DrawRectangle, Box: det.Box, Color: style.PedestrianColor, Thickness: style.PedestrianThickness},
		{Kind: DrawText, Origin: labelOrigin(det.Box), Text: fmt.Sprintf("Person (%.2f)", det.Confidence), Color: style.PedestrianColor, Thickness: 2, Scale: style.LabelScale},
	}
}

func (a *Analyzer) summaryGeometry(result *FrameAnalysisResult) DrawInstruction {
	return DrawInstruction{
		Kind:   DrawSummary,
		Origin: image.Pt(10, 30),
		Lines: []string{
			fmt.Sprintf("Cars: %d | Blue Cars: %d | Other Cars: %d", result.TotalVehicles, result.BlueVehicles, result.OtherVehicles),
			fmt.Sprintf("People: %d", result.TotalPedestrians),
		},
		LineSpacing: 30,
		Color:       a.cfg.Style.TextColor,
		Thickness:   2,
		Scale:       a.cfg.Style.SummaryScale,
	}
}

//labelOrigin places a label 10px above the box
func labelOrigin(b detection.Box) image.Point {
	return image.Pt(b.X1, b.Y1-10)
}

//mean is the arithmetic mean, 0 for no values
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
