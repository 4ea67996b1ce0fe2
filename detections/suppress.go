package detections

import (
	"math"
	"sort"

	"detectcam/models"
)

// Suppressor filters or merges an accepted detection set before drawing. The
// pipeline applies no suppressor unless one is configured: overlapping boxes
// for the same object are kept as-is by default, matching the detector's raw
// behavior.
type Suppressor func([]models.Detection) []models.Detection

// ScoreFloor returns a Suppressor dropping detections below minScore.
func ScoreFloor(minScore float32) Suppressor {
	return func(in []models.Detection) []models.Detection {
		out := make([]models.Detection, 0, len(in))
		for _, d := range in {
			if d.Score >= minScore {
				out = append(out, d)
			}
		}
		return out
	}
}

const (
	defaultClusterSize = 50.0
	iouThreshold       = 0.45
)

// ClusterMerge returns a Suppressor that groups boxes with DBSCAN over their
// corner coordinates and merges each cluster into its bounding hull. Noise
// points are folded into a cluster when they overlap one by IoU, otherwise
// kept individually. A merged box carries the highest score of its members.
func ClusterMerge() Suppressor {
	return func(in []models.Detection) []models.Detection {
		if len(in) == 0 {
			return in
		}

		eps := math.Max(medianBoxSize(in), defaultClusterSize) * 0.5
		minPoints := 1
		if len(in) > 3 {
			minPoints = 2
		}

		points := make([][4]float64, len(in))
		for i, d := range in {
			points[i] = [4]float64{
				float64(d.Box[0]), float64(d.Box[1]),
				float64(d.Box[2]), float64(d.Box[3]),
			}
		}
		clusters := dbscan(points, eps, minPoints)

		grouped := make(map[int][]models.Detection)
		for i, cluster := range clusters {
			if cluster != -1 {
				grouped[cluster] = append(grouped[cluster], in[i])
			}
		}

		var out []models.Detection
		for i, cluster := range clusters {
			if cluster != -1 {
				continue
			}
			// Fold a noise point into a cluster it substantially overlaps;
			// otherwise keep it on its own.
			folded := false
			for id, members := range grouped {
				for _, m := range members {
					if IoU(in[i].Box, m.Box) > iouThreshold {
						grouped[id] = append(grouped[id], in[i])
						folded = true
						break
					}
				}
				if folded {
					break
				}
			}
			if !folded {
				out = append(out, in[i])
			}
		}

		for _, members := range grouped {
			out = append(out, mergeDetections(members))
		}
		return out
	}
}

func medianBoxSize(in []models.Detection) float64 {
	sizes := make([]float64, len(in))
	for i, d := range in {
		width := float64(d.Box[2] - d.Box[0])
		height := float64(d.Box[3] - d.Box[1])
		sizes[i] = math.Sqrt(width * height)
	}
	sort.Float64s(sizes)
	return sizes[len(sizes)/2]
}

func mergeDetections(members []models.Detection) models.Detection {
	merged := members[0]
	for _, d := range members[1:] {
		merged.Box[0] = minF32(merged.Box[0], d.Box[0])
		merged.Box[1] = minF32(merged.Box[1], d.Box[1])
		merged.Box[2] = maxF32(merged.Box[2], d.Box[2])
		merged.Box[3] = maxF32(merged.Box[3], d.Box[3])
		if d.Score > merged.Score {
			merged.Score = d.Score
		}
	}
	return merged
}

// IoU computes intersection-over-union of two boxes in x1,y1,x2,y2 form.
func IoU(a, b [4]float32) float64 {
	x1 := math.Max(float64(a[0]), float64(b[0]))
	y1 := math.Max(float64(a[1]), float64(b[1]))
	x2 := math.Min(float64(a[2]), float64(b[2]))
	y2 := math.Min(float64(a[3]), float64(b[3]))
	if x2 <= x1 || y2 <= y1 {
		return 0.0
	}
	intersection := (x2 - x1) * (y2 - y1)
	areaA := float64((a[2] - a[0]) * (a[3] - a[1]))
	areaB := float64((b[2] - b[0]) * (b[3] - b[1]))
	return intersection / (areaA + areaB - intersection)
}

func dbscan(points [][4]float64, eps float64, minPoints int) []int {
	clusters := make([]int, len(points))
	for i := range clusters {
		clusters[i] = -1
	}

	current := 0
	for i := range points {
		if clusters[i] != -1 {
			continue
		}
		neighbors := neighborsOf(points, i, eps)
		if len(neighbors) < minPoints {
			continue
		}
		clusters[i] = current
		expandCluster(points, clusters, neighbors, current, eps, minPoints)
		current++
	}
	return clusters
}

func neighborsOf(points [][4]float64, idx int, eps float64) []int {
	var neighbors []int
	for i := range points {
		if cornerDistance(points[idx], points[i]) <= eps {
			neighbors = append(neighbors, i)
		}
	}
	return neighbors
}

func expandCluster(points [][4]float64, clusters, neighbors []int, cluster int, eps float64, minPoints int) {
	for i := 0; i < len(neighbors); i++ {
		idx := neighbors[i]
		if clusters[idx] != -1 {
			continue
		}
		clusters[idx] = cluster
		next := neighborsOf(points, idx, eps)
		if len(next) >= minPoints {
			neighbors = append(neighbors, next...)
		}
	}
}

func cornerDistance(a, b [4]float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

func minF32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
