// Package colors maps pixel colors onto the fixed vehicle color taxonomy and extracts the dominant
// color of an image region.
package colors

import (
	"math"
	"strings"
)

//Category is one of the named body colors a vehicle can be classified as
type Category string

const (
	Blue   Category = "blue"
	Red    Category = "red"
	Green  Category = "green"
	Yellow Category = "yellow"
	White  Category = "white"
	Black  Category = "black"
	Gray   Category = "gray"
	Other  Category = "other"
)

//Categories lists the closed set of categories in display order
var Categories = []Category{Blue, Red, Green, Yellow, White, Black, Gray, Other}

//Valid reports whether c belongs to the closed category set
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

//Title returns the capitalized name, as used in overlay labels ("Red Car") and reports
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

//BGR is an 8-bit color in OpenCV channel order
type BGR struct {
	B uint8 `json:"b"`
	G uint8 `json:"g"`
	R uint8 `json:"r"`
}

//HSV is an 8-bit HSV triple in OpenCV's convention: H in [0,180) half degrees, S and V in [0,255]
type HSV struct {
	H uint8 `json:"h"`
	S uint8 `json:"s"`
	V uint8 `json:"v"`
}

//BGRToHSV converts like cv2.cvtColor(..., COLOR_BGR2HSV) does for 8-bit images, so thresholds tuned
//against OpenCV apply unchanged.
func BGRToHSV(c BGR) HSV {
	b, g, r := float64(c.B), float64(c.G), float64(c.R)

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	var s float64
	if maxC > 0 {
		s = math.Round(255 * diff / maxC)
	}

	var h float64
	if diff > 0 {
		switch maxC { //OpenCV checks red first, then green
		case r:
			h = 60 * (g - b) / diff
		case g:
			h = 120 + 60*(b-r)/diff
		default:
			h = 240 + 60*(r-g)/diff
		}
		if h < 0 {
			h += 360
		}
		h = math.Round(h / 2)
		if h >= 180 {
			h -= 180
		}
	}

	return HSV{H: uint8(h), S: uint8(s), V: uint8(maxC)}
}
