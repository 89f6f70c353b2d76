package analyzer

import (
	"image"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/colors"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/detection"
)

//DrawKind names a drawing primitive
type DrawKind string

const (
	DrawRectangle DrawKind = "rectangle"
	DrawText      DrawKind = "text"
	//DrawSummary is text made of several lines, drawn LineSpacing pixels apart starting at Origin
	DrawSummary DrawKind = "summary"
)

//DrawInstruction is one primitive for a rendering layer. Rectangles use Box, text uses Origin (baseline left).
type DrawInstruction struct {
	Kind        DrawKind      `json:"kind"`
	Box         detection.Box `json:"box"`
	Origin      image.Point   `json:"origin"`
	Text        string        `json:"text,omitempty"`
	Lines       []string      `json:"lines,omitempty"`
	LineSpacing int           `json:"line_spacing,omitempty"`
	Color       colors.BGR    `json:"color"`
	Thickness   int           `json:"thickness"`
	Scale       float64       `json:"scale,omitempty"`
}

//VehicleColorResult is the color found for one vehicle detection
type VehicleColorResult struct {
	Detection     detection.Detection `json:"detection"`
	DominantColor colors.BGR          `json:"dominant_color_bgr"`
	Category      colors.Category     `json:"category"`
}

//DetectionFailure records a vehicle that was counted but could not be color classified
type DetectionFailure struct {
	Detection detection.Detection `json:"detection"`
	Reason    string              `json:"reason"`
}

//FrameAnalysisResult is the outcome of analyzing one frame. It is built fresh by every Analyze call.
//
//BlueVehicles + OtherVehicles + UnclassifiedVehicles == TotalVehicles, and the histogram sums to
//BlueVehicles + OtherVehicles.
type FrameAnalysisResult struct {
	TotalVehicles           int                     `json:"total_vehicles"`
	BlueVehicles            int                     `json:"blue_vehicles"`
	OtherVehicles           int                     `json:"other_vehicles"`
	UnclassifiedVehicles    int                     `json:"unclassified_vehicles"`
	TotalPedestrians        int                     `json:"total_pedestrians"`
	ColorHistogram          map[colors.Category]int `json:"color_histogram"`
	AvgVehicleConfidence    float64                 `json:"avg_vehicle_confidence"`
	AvgPedestrianConfidence float64                 `json:"avg_pedestrian_confidence"`
	Vehicles                []VehicleColorResult    `json:"vehicles"`
	Failures                []DetectionFailure      `json:"failures,omitempty"`
	Geometry                []DrawInstruction       `json:"annotated_geometry"`
}

//HistogramTotal sums the color histogram
func (r *FrameAnalysisResult) HistogramTotal() int {
	total := 0
	for _, n := range r.ColorHistogram {
		total += n
	}
	return total
}
