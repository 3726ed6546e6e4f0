// Package distance implements the Distance Oracle: it produces a sparse
// distance matrix between demand points and facility candidates, in
// miles, via one of two interchangeable back-ends.
package distance

import (
	"context"
	"fmt"
	"sort"

	"github.com/gsudice/nsf-cosea/internal/model"
	"github.com/gsudice/nsf-cosea/pkg/geo"
)

// Matrix is the sparse (D, N) pair: D[i][j] gives the miles from demand i
// to facility j for every j in N[i].
type Matrix struct {
	Demand     []model.DemandPoint
	Facilities []model.FacilityCandidate
	D          map[[2]int]float64
	N          [][]int // N[i] = facility indices reachable from demand i, ascending as built; Prune leaves them ordered by distance
}

// Distance returns D[(i,j)] and whether the pair exists.
func (m *Matrix) Distance(i, j int) (float64, bool) {
	d, ok := m.D[[2]int{i, j}]
	return d, ok
}

// NeighborsWithin returns the facility indices reachable from demand i
// within radius miles (N_cov(i) in the Optimization Core's LSCP/MCLP
// formulations).
func (m *Matrix) NeighborsWithin(i int, radius float64) []int {
	var out []int
	for _, j := range m.N[i] {
		if d, ok := m.Distance(i, j); ok && d <= radius {
			out = append(out, j)
		}
	}
	return out
}

// Prune retains, for each demand point, only the k closest facilities by
// distance. k <= 0 disables pruning (a no-op).
func (m *Matrix) Prune(k int) {
	if k <= 0 {
		return
	}
	for i, neighbors := range m.N {
		if len(neighbors) <= k {
			continue
		}
		sort.Slice(neighbors, func(a, b int) bool {
			da, _ := m.Distance(i, neighbors[a])
			db, _ := m.Distance(i, neighbors[b])
			return da < db
		})
		dropped := neighbors[k:]
		for _, j := range dropped {
			delete(m.D, [2]int{i, j})
		}
		m.N[i] = append([]int(nil), neighbors[:k]...)
	}
}

// CheckCoverage returns the count of demand points with an empty neighbor
// list — the condition that must refuse any solver from running.
func (m *Matrix) CheckCoverage() (uncovered int) {
	for _, neighbors := range m.N {
		if len(neighbors) == 0 {
			uncovered++
		}
	}
	return uncovered
}

// Oracle is the Distance Oracle capability: build a matrix from demand and
// facility points, with the back-end choice (haversine vs network) fixed
// at construction.
type Oracle interface {
	Build(ctx context.Context, demand []model.DemandPoint, facilities []model.FacilityCandidate) (*Matrix, error)
}

// HaversineOracle is the dense back-end: every (demand, facility) pair is
// connected, at its great-circle distance.
type HaversineOracle struct{}

// Build computes the complete bipartite distance matrix in O(n*m).
func (HaversineOracle) Build(_ context.Context, demand []model.DemandPoint, facilities []model.FacilityCandidate) (*Matrix, error) {
	m := &Matrix{
		Demand:     demand,
		Facilities: facilities,
		D:          make(map[[2]int]float64, len(demand)*len(facilities)),
		N:          make([][]int, len(demand)),
	}
	for i, d := range demand {
		neighbors := make([]int, len(facilities))
		for j, f := range facilities {
			dist := geo.HaversineMiles(d.Location(), f.Location())
			m.D[[2]int{i, j}] = dist
			neighbors[j] = j
		}
		m.N[i] = neighbors
	}
	return m, nil
}

// String identifies the back-end for logging/config, e.g. "haversine".
func (HaversineOracle) String() string { return "haversine" }

// NewOracle resolves a configured back-end name to an Oracle
// implementation.
func NewOracle(backend string, net *NetworkOracle) (Oracle, error) {
	switch backend {
	case "", "haversine":
		return HaversineOracle{}, nil
	case "network":
		if net == nil {
			return nil, fmt.Errorf("distance: network backend selected but not configured")
		}
		return net, nil
	default:
		return nil, fmt.Errorf("distance: unknown backend %q", backend)
	}
}

// DistancePair is one (demand, facility, miles) entry — Matrix's D field
// flattened for round-tripping through a JSON cache, since a [2]int map
// key isn't a valid JSON object key.
type DistancePair struct {
	I, J int
	Dist float64
}

// MatrixDTO is Matrix's JSON-serializable form.
type MatrixDTO struct {
	Demand     []model.DemandPoint
	Facilities []model.FacilityCandidate
	Pairs      []DistancePair
	N          [][]int
}

// ToDTO flattens m's sparse map into a pair list for caching.
func (m *Matrix) ToDTO() MatrixDTO {
	dto := MatrixDTO{Demand: m.Demand, Facilities: m.Facilities, N: m.N}
	dto.Pairs = make([]DistancePair, 0, len(m.D))
	for k, v := range m.D {
		dto.Pairs = append(dto.Pairs, DistancePair{I: k[0], J: k[1], Dist: v})
	}
	return dto
}

// ToMatrix rebuilds a Matrix from its cached DTO form.
func (dto MatrixDTO) ToMatrix() *Matrix {
	m := &Matrix{
		Demand:     dto.Demand,
		Facilities: dto.Facilities,
		D:          make(map[[2]int]float64, len(dto.Pairs)),
		N:          dto.N,
	}
	for _, p := range dto.Pairs {
		m.D[[2]int{p.I, p.J}] = p.Dist
	}
	return m
}
