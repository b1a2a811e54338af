// Package segment partitions feature rows into a fixed number of clusters
// with Lloyd's k-means, seeded by k-means++ from a deterministic source.
package segment

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

var (
	ErrEmptyMatrix     = errors.New("feature matrix has no rows or no columns")
	ErrRaggedMatrix    = errors.New("feature matrix rows differ in width")
	ErrNonFinite       = errors.New("feature matrix contains NaN or Inf")
	ErrInvalidK        = errors.New("cluster count must be at least 1")
	ErrTooManyClusters = errors.New("cluster count exceeds number of distinct rows")
)

// Options controls a k-means fit.
type Options struct {
	K       int
	Seed    int64
	MaxIter int
	// Tolerance on the squared centroid shift, relative to the mean
	// per-feature variance of the input.
	Tolerance float64
	// NInit runs that many seeded restarts and keeps the lowest inertia.
	NInit int
}

// DefaultOptions returns k=4, seed 42, 300 iterations, tolerance 1e-4, one init.
func DefaultOptions() Options {
	return Options{K: 4, Seed: 42, MaxIter: 300, Tolerance: 1e-4, NInit: 1}
}

// Model is the fitted state of a k-means run.
type Model struct {
	K          int         `json:"k" yaml:"k"`
	Seed       int64       `json:"seed" yaml:"seed"`
	Centroids  [][]float64 `json:"centroids" yaml:"centroids"`
	Inertia    float64     `json:"inertia" yaml:"inertia"` // sum of squared distances to nearest centroid
	Iterations int         `json:"iterations" yaml:"iterations"`
}

// Fit clusters X and returns one label in [0, K) per row plus the model.
// Identical input and options always give identical output.
func Fit(X [][]float64, opt Options) ([]int, *Model, error) {
	if opt.K < 1 {
		return nil, nil, fmt.Errorf("k=%d: %w", opt.K, ErrInvalidK)
	}
	if err := validate(X); err != nil {
		return nil, nil, err
	}
	if d := distinctRows(X, opt.K); d < opt.K {
		return nil, nil, fmt.Errorf("k=%d, distinct rows=%d: %w", opt.K, d, ErrTooManyClusters)
	}
	if opt.MaxIter <= 0 {
		opt.MaxIter = 300
	}
	if opt.NInit <= 0 {
		opt.NInit = 1
	}
	tol := opt.Tolerance * meanVariance(X)

	var (
		bestLabels []int
		best       *Model
	)
	for run := 0; run < opt.NInit; run++ {
		rng := rand.New(rand.NewSource(opt.Seed + int64(run)))
		labels, m := lloyd(X, initCenters(X, opt.K, rng), opt.MaxIter, tol)
		m.Seed = opt.Seed
		if best == nil || m.Inertia < best.Inertia {
			best, bestLabels = m, labels
		}
	}
	return bestLabels, best, nil
}

// Predict assigns each row of X to its nearest centroid.
func (m *Model) Predict(X [][]float64) ([]int, error) {
	if err := validate(X); err != nil {
		return nil, err
	}
	if len(m.Centroids) == 0 || len(X[0]) != len(m.Centroids[0]) {
		return nil, fmt.Errorf("feature count mismatch between input and model centroids: %w", ErrRaggedMatrix)
	}
	labels := make([]int, len(X))
	assign(X, m.Centroids, labels)
	return labels, nil
}

func lloyd(X [][]float64, centroids [][]float64, maxIter int, tol float64) ([]int, *Model) {
	n, p, k := len(X), len(X[0]), len(centroids)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	m := &Model{K: k}
	for it := 0; it < maxIter; it++ {
		changed, _ := assign(X, centroids, labels)
		m.Iterations = it + 1

		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, p)
		}
		counts := make([]int, k)
		for i, x := range X {
			c := labels[i]
			counts[c]++
			for j := 0; j < p; j++ {
				sums[c][j] += x[j]
			}
		}
		next := make([][]float64, k)
		taken := map[int]bool{}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				i := farthestPoint(X, centroids, labels, taken)
				taken[i] = true
				next[c] = append([]float64(nil), X[i]...)
				continue
			}
			next[c] = make([]float64, p)
			for j := 0; j < p; j++ {
				next[c][j] = sums[c][j] / float64(counts[c])
			}
		}
		shift := 0.0
		for c := 0; c < k; c++ {
			shift += euclidSquared(centroids[c], next[c])
		}
		centroids = next
		if changed == 0 || shift <= tol {
			break
		}
	}
	_, m.Inertia = assign(X, centroids, labels)
	m.Centroids = centroids
	return labels, m
}

// assign writes the nearest centroid of every row into labels and returns
// how many labels changed and the resulting inertia. Ties go to the lower index.
func assign(X, centroids [][]float64, labels []int) (changed int, inertia float64) {
	for i, x := range X {
		best, bestD := 0, math.MaxFloat64
		for c, ctr := range centroids {
			if d := euclidSquared(x, ctr); d < bestD {
				best, bestD = c, d
			}
		}
		if labels[i] != best {
			changed++
		}
		labels[i] = best
		inertia += bestD
	}
	return changed, inertia
}

// farthestPoint picks the row farthest from its current centroid; used to
// re-seed a cluster that lost all members.
func farthestPoint(X, centroids [][]float64, labels []int, taken map[int]bool) int {
	best, bestD := 0, -1.0
	for i, x := range X {
		if taken[i] {
			continue
		}
		if d := euclidSquared(x, centroids[labels[i]]); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

// initCenters runs k-means++ seeding: the first center is uniform, each
// next one is drawn with probability proportional to squared distance from
// the nearest chosen center.
func initCenters(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), X[rng.Intn(n)]...))

	distSq := make([]float64, n)
	for len(centers) < k {
		total := 0.0
		for i, x := range X {
			minD := math.MaxFloat64
			for _, c := range centers {
				if d := euclidSquared(x, c); d < minD {
					minD = d
				}
			}
			distSq[i] = minD
			total += minD
		}
		r := rng.Float64() * total
		pick, cumulative := -1, 0.0
		for i, d2 := range distSq {
			if d2 == 0 {
				continue
			}
			pick = i
			cumulative += d2
			if cumulative >= r {
				break
			}
		}
		centers = append(centers, append([]float64(nil), X[pick]...))
	}
	return centers
}

func validate(X [][]float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return ErrEmptyMatrix
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), p, ErrRaggedMatrix)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d: %w", i, ErrNonFinite)
			}
		}
	}
	return nil
}

// distinctRows counts distinct rows, stopping early once limit is reached.
func distinctRows(X [][]float64, limit int) int {
	seen := map[string]struct{}{}
	buf := make([]byte, 0, 64)
	for _, row := range X {
		buf = buf[:0]
		for _, v := range row {
			// v+0 folds -0 into 0
			buf = strconv.AppendUint(buf, math.Float64bits(v+0), 16)
			buf = append(buf, ',')
		}
		seen[string(buf)] = struct{}{}
		if len(seen) >= limit {
			return len(seen)
		}
	}
	return len(seen)
}

func meanVariance(X [][]float64) float64 {
	n, p := float64(len(X)), len(X[0])
	total := 0.0
	for j := 0; j < p; j++ {
		mean := 0.0
		for _, row := range X {
			mean += row[j]
		}
		mean /= n
		v := 0.0
		for _, row := range X {
			d := row[j] - mean
			v += d * d
		}
		total += v / n
	}
	return total / float64(p)
}

func euclidSquared(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
