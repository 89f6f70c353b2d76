package detection

import "image"

//Class ids of the standard 80 class COCO taxonomy that YOLO style detectors report
const (
	COCOPersonClass = 0
	COCOCarClass    = 2
)

//DefaultConfidenceThreshold is the minimum confidence (exclusive) for a detection to be counted
const DefaultConfidenceThreshold = 0.5

//Box is a bounding box in pixel coordinates, (X1,Y1) top left inclusive and (X2,Y2) bottom right exclusive
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

//Rect returns the box as an image.Rectangle. It is built literally (not with image.Rect) so an
//inverted box stays inverted and extracts as an empty region.
func (b Box) Rect() image.Rectangle {
	return image.Rectangle{Min: image.Pt(b.X1, b.Y1), Max: image.Pt(b.X2, b.Y2)}
}

//Detection is one object reported by the detector for one frame
type Detection struct {
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

//Classes holds the class ids the filter treats as vehicle and pedestrian
type Classes struct {
	Vehicle    int
	Pedestrian int
}

//DefaultClasses returns the COCO ids: car=2, person=0
func DefaultClasses() Classes {
	return Classes{Vehicle: COCOCarClass, Pedestrian: COCOPersonClass}
}

//Filter splits detections into vehicles and pedestrians whose confidence is strictly greater than threshold.
//Anything else is dropped. Input order is kept within each output slice.
func Filter(detections []Detection, classes Classes, threshold float64) (vehicles, pedestrians []Detection) {
	vehicles = make([]Detection, 0)
	pedestrians = make([]Detection, 0)

	for _, det := range detections {
		if !(det.Confidence > threshold) {
			continue
		}

		switch det.ClassID {
		case classes.Vehicle:
			vehicles = append(vehicles, det)
		case classes.Pedestrian:
			pedestrians = append(pedestrians, det)
		}
	}

	return vehicles, pedestrians
}
