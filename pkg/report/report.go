// Package report accumulates frame results across a video and renders them for people: a plain text
// summary, a JSON artifact and a color histogram chart.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/analyzer"
	"github.com/chenBenjamin97/traffic-analyzer/pkg/colors"
)

//Summary aggregates any number of frames. Averages are weighted by detection count, not by frame.
type Summary struct {
	Frames                  int                     `json:"frames"`
	TotalVehicles           int                     `json:"total_vehicles"`
	BlueVehicles            int                     `json:"blue_vehicles"`
	OtherVehicles           int                     `json:"other_vehicles"`
	UnclassifiedVehicles    int                     `json:"unclassified_vehicles"`
	TotalPedestrians        int                     `json:"total_pedestrians"`
	ColorHistogram          map[colors.Category]int `json:"color_histogram"`
	AvgVehicleConfidence    float64                 `json:"avg_vehicle_confidence"`
	AvgPedestrianConfidence float64                 `json:"avg_pedestrian_confidence"`
	PeakVehicles            int                     `json:"peak_vehicles"`
	PeakPedestrians         int                     `json:"peak_pedestrians"`
}

//FromResult wraps a single frame result
func FromResult(r analyzer.FrameAnalysisResult) Summary {
	acc := NewAccumulator()
	acc.Add(r)
	return acc.Summary()
}

//Accumulator sums frame results. Safe for concurrent use.
type Accumulator struct {
	mu                sync.Mutex
	summary           Summary
	vehicleConfSum    float64
	pedestrianConfSum float64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{summary: Summary{ColorHistogram: make(map[colors.Category]int)}}
}

//Add folds one frame in
func (a *Accumulator) Add(r analyzer.FrameAnalysisResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := &a.summary
	s.Frames++
	s.TotalVehicles += r.TotalVehicles
	s.BlueVehicles += r.BlueVehicles
	s.OtherVehicles += r.OtherVehicles
	s.UnclassifiedVehicles += r.UnclassifiedVehicles
	s.TotalPedestrians += r.TotalPedestrians
	for category, n := range r.ColorHistogram {
		s.ColorHistogram[category] += n
	}

	a.vehicleConfSum += r.AvgVehicleConfidence * float64(r.TotalVehicles)
	a.pedestrianConfSum += r.AvgPedestrianConfidence * float64(r.TotalPedestrians)

	if r.TotalVehicles > s.PeakVehicles {
		s.PeakVehicles = r.TotalVehicles
	}
	if r.TotalPedestrians > s.PeakPedestrians {
		s.PeakPedestrians = r.TotalPedestrians
	}
}

//Summary returns a snapshot
func (a *Accumulator) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.summary
	s.ColorHistogram = make(map[colors.Category]int, len(a.summary.ColorHistogram))
	for k, v := range a.summary.ColorHistogram {
		s.ColorHistogram[k] = v
	}

	if s.TotalVehicles > 0 {
		s.AvgVehicleConfidence = a.vehicleConfSum / float64(s.TotalVehicles)
	}
	if s.TotalPedestrians > 0 {
		s.AvgPedestrianConfidence = a.pedestrianConfSum / float64(s.TotalPedestrians)
	}

	return s
}

//Text renders the summary as the human readable results panel
func Text(s Summary) string {
	var b strings.Builder

	b.WriteString("TRAFFIC ANALYSIS RESULTS\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	if s.Frames > 1 {
		fmt.Fprintf(&b, "FRAMES ANALYZED: %d\n\n", s.Frames)
	}

	b.WriteString("CAR DETECTION:\n")
	fmt.Fprintf(&b, "- Total Cars Detected: %d\n", s.TotalVehicles)
	fmt.Fprintf(&b, "- Blue Cars: %d (marked with RED rectangles)\n", s.BlueVehicles)
	fmt.Fprintf(&b, "- Other Color Cars: %d (marked with BLUE rectangles)\n", s.OtherVehicles)
	if s.UnclassifiedVehicles > 0 {
		fmt.Fprintf(&b, "- Cars Without Color: %d\n", s.UnclassifiedVehicles)
	}

	b.WriteString("\nCAR COLOR BREAKDOWN:\n")
	if breakdown := sortedBreakdown(s.ColorHistogram); len(breakdown) > 0 {
		for _, category := range breakdown {
			fmt.Fprintf(&b, "- %s: %d\n", category.Title(), s.ColorHistogram[category])
		}
	} else {
		b.WriteString("- No cars detected\n")
	}

	b.WriteString("\nPEOPLE DETECTION:\n")
	fmt.Fprintf(&b, "- Total People: %d\n", s.TotalPedestrians)

	b.WriteString("\nDETECTION CONFIDENCE:\n")
	fmt.Fprintf(&b, "- Average Car Detection Confidence: %s\n", percent(s.AvgVehicleConfidence))
	fmt.Fprintf(&b, "- Average Person Detection Confidence: %s\n", percent(s.AvgPedestrianConfidence))

	b.WriteString("\nLEGEND:\n")
	b.WriteString("\U0001F534 Red Rectangle = Blue Car\n")
	b.WriteString("\U0001F535 Blue Rectangle = Other Color Car\n")
	b.WriteString("\U0001F7E2 Green Rectangle = Person\n")

	return b.String()
}

//sortedBreakdown returns the categories present in hist, most frequent first. Ties keep display order.
func sortedBreakdown(hist map[colors.Category]int) []colors.Category {
	present := make([]colors.Category, 0, len(hist))
	for _, category := range colors.Categories {
		if _, ok := hist[category]; ok {
			present = append(present, category)
		}
	}

	sort.SliceStable(present, func(i, j int) bool {
		return hist[present[i]] > hist[present[j]]
	})

	return present
}

//percent formats a 0..1 ratio with two decimals, 0.75 -> "75.00%"
func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

//Path is where the JSON report of a video named base (no extension) is kept in dir
func Path(dir, base string) string {
	return filepath.Join(dir, base+".json")
}

//WriteJSON writes the summary as an indented JSON file
func WriteJSON(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("WriteJSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("WriteJSON: Could not write '%s', got '%w'", path, err)
	}

	return nil
}

//ReadJSON loads a summary written by WriteJSON
func ReadJSON(path string) (Summary, error) {
	var s Summary

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("ReadJSON: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("ReadJSON: Could not parse '%s', got '%w'", path, err)
	}

	return s, nil
}
