package colors

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/frame"
	"gonum.org/v1/gonum/floats"
)

var (
	//ErrEmptyRegion is returned when asked for the dominant color of a region with no pixels
	ErrEmptyRegion = errors.New("empty region")
	//ErrClusteringFailure is returned when clustering produced no usable centroid
	ErrClusteringFailure = errors.New("clustering failure")
)

const (
	DefaultClusters      = 3
	DefaultSeed          = 42
	DefaultAttempts      = 10
	DefaultMaxIterations = 300
)

//Extractor finds the dominant color of a region with k-means: pixels are split into Clusters groups
//and the centroid of the most populated group is returned. Runs are seeded with Seed, so identical
//input always yields the identical color.
//
//Cost grows with pixels * Clusters * iterations * Attempts. Regions should be downsampled to a few
//hundred pixels per side at most before calling Dominant.
type Extractor struct {
	Clusters      int
	Seed          int64
	Attempts      int //independent k-means++ initialisations, the lowest inertia run is kept
	MaxIterations int
}

//NewExtractor returns an Extractor with the default number of attempts and iterations
func NewExtractor(clusters int, seed int64) *Extractor {
	return &Extractor{Clusters: clusters, Seed: seed, Attempts: DefaultAttempts, MaxIterations: DefaultMaxIterations}
}

type clustering struct {
	centers [][]float64
	labels  []int
	inertia float64
}

//Dominant returns the dominant color of region, each channel rounded to the nearest integer.
//Regions with fewer distinct colors than Clusters are clustered with fewer clusters; a region of a
//single color returns that color.
func (e *Extractor) Dominant(region *frame.Frame) (BGR, error) {
	if region.Empty() {
		return BGR{}, ErrEmptyRegion
	}

	k := e.Clusters
	if k < 1 {
		k = 1
	}

	n := region.Area()
	points := make([][]float64, n)
	distinct := make(map[[3]uint8]struct{}, k+1)
	for i := 0; i < n; i++ {
		px := region.Pix[i*frame.Channels : i*frame.Channels+frame.Channels]
		points[i] = []float64{float64(px[0]), float64(px[1]), float64(px[2])}
		if len(distinct) <= k {
			distinct[[3]uint8{px[0], px[1], px[2]}] = struct{}{}
		}
	}

	if len(distinct) == 1 {
		return BGR{B: region.Pix[0], G: region.Pix[1], R: region.Pix[2]}, nil
	}
	if len(distinct) < k {
		k = len(distinct)
	}

	attempts := e.Attempts
	if attempts < 1 {
		attempts = 1
	}
	maxIter := e.MaxIterations
	if maxIter < 1 {
		maxIter = DefaultMaxIterations
	}

	rng := rand.New(rand.NewSource(e.Seed))

	var best *clustering
	for a := 0; a < attempts; a++ {
		run := lloyd(points, seedCenters(points, k, rng), maxIter)
		if best == nil || run.inertia < best.inertia {
			best = run
		}
	}

	center := best.centers[largestCluster(best.labels, k)]
	for _, v := range center {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BGR{}, fmt.Errorf("Dominant: centroid %v: %w", center, ErrClusteringFailure)
		}
	}

	return BGR{B: toChannel(center[0]), G: toChannel(center[1]), R: toChannel(center[2])}, nil
}

//largestCluster returns the index of the cluster with the most members. Ties go to the lowest index.
func largestCluster(labels []int, k int) int {
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}

	dominant := 0
	for i := 1; i < k; i++ {
		if counts[i] > counts[dominant] {
			dominant = i
		}
	}
	return dominant
}

//seedCenters picks k initial centers with k-means++
func seedCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), points[rng.Intn(len(points))]...))

	dist := make([]float64, len(points))
	for len(centers) < k {
		var total float64
		for i, p := range points {
			dist[i] = nearest(p, centers).dist
			total += dist[i]
		}

		next := rng.Intn(len(points))
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target < 0 {
					next = i
					break
				}
			}
		}
		centers = append(centers, append([]float64(nil), points[next]...))
	}

	return centers
}

type assignment struct {
	index int
	dist  float64
}

//nearest returns the closest center and the squared distance to it. Ties go to the lower index.
func nearest(p []float64, centers [][]float64) assignment {
	best := assignment{index: 0, dist: math.Inf(1)}
	for i, c := range centers {
		d := floats.Distance(p, c, 2)
		if d*d < best.dist {
			best = assignment{index: i, dist: d * d}
		}
	}
	return best
}

//lloyd iterates assignment and update steps until labels stop changing or maxIter is reached.
//A cluster that loses all its points keeps its previous center.
func lloyd(points [][]float64, centers [][]float64, maxIter int) *clustering {
	k := len(centers)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	sums := make([][]float64, k)
	for i := range sums {
		sums[i] = make([]float64, len(centers[i]))
	}
	counts := make([]int, k)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			if a := nearest(p, centers); a.index != labels[i] {
				labels[i] = a.index
				changed = true
			}
		}
		if !changed {
			break
		}

		for i := range sums {
			for j := range sums[i] {
				sums[i][j] = 0
			}
			counts[i] = 0
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for i := range centers {
			if counts[i] == 0 {
				continue
			}
			floats.ScaleTo(centers[i], 1/float64(counts[i]), sums[i])
		}
	}

	var inertia float64
	for i, p := range points {
		a := nearest(p, centers)
		labels[i] = a.index
		inertia += a.dist
	}

	return &clustering{centers: centers, labels: labels, inertia: inertia}
}

func toChannel(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
