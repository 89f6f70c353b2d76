package analyzer

import (
	"errors"
	"fmt"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/colors"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/detection"
	"github.com/go-playground/validator/v10"
)

//ErrInvalidConfiguration is returned by New (and Config.Validate) for an unusable configuration
var ErrInvalidConfiguration = errors.New("invalid configuration")

//DefaultMaxRegionSide bounds the longer side of a vehicle region before clustering
const DefaultMaxRegionSide = 160

//Style holds the colors (BGR) and stroke widths of the emitted draw instructions
type Style struct {
	BlueVehicleColor    colors.BGR `mapstructure:"blue_vehicle_color"`
	OtherVehicleColor   colors.BGR `mapstructure:"other_vehicle_color"`
	PedestrianColor     colors.BGR `mapstructure:"pedestrian_color"`
	TextColor           colors.BGR `mapstructure:"text_color"`
	VehicleThickness    int        `mapstructure:"vehicle_thickness" validate:"gte=1"`
	PedestrianThickness int        `mapstructure:"pedestrian_thickness" validate:"gte=1"`
	LabelScale          float64    `mapstructure:"label_scale" validate:"gt=0"`
	SummaryScale        float64    `mapstructure:"summary_scale" validate:"gt=0"`
}

//Config is everything the analyzer needs. An Analyzer copies it at construction and never changes it.
type Config struct {
	ConfidenceThreshold float64       `validate:"gte=0,lte=1"`
	VehicleClassID      int           `validate:"nefield=PedestrianClassID"`
	PedestrianClassID   int
	ClusterCount        int           `validate:"gte=1"`
	ClusterSeed         int64
	ClusterAttempts     int           `validate:"gte=1"`
	MaxIterations       int           `validate:"gte=1"`
	MaxRegionSide       int           `validate:"gte=0"` //0 disables downsampling
	Rules               []colors.Rule `validate:"required,min=1"`
	Style               Style
}

//DefaultStyle draws blue cars in red, other cars in blue and people in green, with white summary text
func DefaultStyle() Style {
	return Style{
		BlueVehicleColor:    colors.BGR{B: 0, G: 0, R: 255},
		OtherVehicleColor:   colors.BGR{B: 255, G: 0, R: 0},
		PedestrianColor:     colors.BGR{B: 0, G: 255, R: 0},
		TextColor:           colors.BGR{B: 255, G: 255, R: 255},
		VehicleThickness:    3,
		PedestrianThickness: 2,
		LabelScale:          0.6,
		SummaryScale:        0.7,
	}
}

//DefaultConfig returns the reference configuration
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: detection.DefaultConfidenceThreshold,
		VehicleClassID:      detection.COCOCarClass,
		PedestrianClassID:   detection.COCOPersonClass,
		ClusterCount:        colors.DefaultClusters,
		ClusterSeed:         colors.DefaultSeed,
		ClusterAttempts:     colors.DefaultAttempts,
		MaxIterations:       colors.DefaultMaxIterations,
		MaxRegionSide:       DefaultMaxRegionSide,
		Rules:               colors.DefaultRules(),
		Style:               DefaultStyle(),
	}
}

var validate = validator.New()

//Validate checks c, every error wraps ErrInvalidConfiguration
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	if _, err := colors.NewClassifier(c.Rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	return nil
}

//Classes returns the vehicle/pedestrian ids in the form the detection filter takes
func (c Config) Classes() detection.Classes {
	return detection.Classes{Vehicle: c.VehicleClassID, Pedestrian: c.PedestrianClassID}
}

func copyRules(rules []colors.Rule) []colors.Rule {
	out := make([]colors.Rule, len(rules))
	for i, r := range rules {
		out[i] = colors.Rule{Category: r.Category, Ranges: append([]colors.HSVRange(nil), r.Ranges...)}
	}
	return out
}
