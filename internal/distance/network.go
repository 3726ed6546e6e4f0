package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dijkstra"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/gsudice/nsf-cosea/config"
	"github.com/gsudice/nsf-cosea/internal/model"
	"github.com/gsudice/nsf-cosea/pkg/geo"
)

// NetworkOracle is the sparse back-end: distances follow the drivable road
// network rather than the great circle. It downloads a bounded-radius
// road graph from an Overpass API endpoint, snaps each point to its
// nearest graph node, and runs one Dijkstra search per demand point.
type NetworkOracle struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *lru.Cache[string, *roadGraph]
	group      singleflight.Group

	overpassURL    string
	fetchTimeout   time.Duration
	radiusCapMiles float64
}

// roadGraph pairs a lvlath graph with the node coordinates used to build
// it, since snapping demand/facility points to the nearest node needs
// real coordinates and lvlath's Graph carries only vertex IDs.
type roadGraph struct {
	g      *core.Graph
	coords map[int64]model.Location
}

// NewNetworkOracle builds a NetworkOracle from scenario configuration. Graph
// downloads are rate limited to one every two seconds, matching Overpass's
// public-instance fair-use guidance, and deduplicated across concurrent
// scenario runs that request the same bounding box.
func NewNetworkOracle(cfg config.ScenarioConfig) (*NetworkOracle, error) {
	size := cfg.OSMGraphCacheSize
	if size <= 0 {
		size = 16
	}
	cache, err := lru.New[string, *roadGraph](size)
	if err != nil {
		return nil, fmt.Errorf("distance: build graph cache: %w", err)
	}
	timeout := cfg.OSMFetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NetworkOracle{
		httpClient:     &http.Client{Timeout: timeout + 5*time.Second},
		limiter:        rate.NewLimiter(rate.Every(2*time.Second), 1),
		cache:          cache,
		overpassURL:    cfg.OverpassURL,
		fetchTimeout:   timeout,
		radiusCapMiles: cfg.RadiusCapMiles,
	}, nil
}

// String identifies the back-end for logging/config.
func (n *NetworkOracle) String() string { return "network" }

// Build downloads (or reuses a cached) drivable road graph covering every
// point, snaps each demand and facility point to its nearest graph node,
// and runs Dijkstra once per demand point to populate the sparse matrix.
// Pairs the graph cannot reach are omitted, per the Distance Oracle
// contract.
func (n *NetworkOracle) Build(ctx context.Context, demand []model.DemandPoint, facilities []model.FacilityCandidate) (*Matrix, error) {
	locations := make([]model.Location, 0, len(demand)+len(facilities))
	for _, d := range demand {
		locations = append(locations, d.Location())
	}
	for _, f := range facilities {
		locations = append(locations, f.Location())
	}
	bbox := geo.NewBoundingBox(locations)

	rg, err := n.graphFor(ctx, bbox)
	if err != nil {
		return nil, fmt.Errorf("distance: fetch road network: %w", err)
	}

	demandNodes := make([]string, len(demand))
	for i, d := range demand {
		demandNodes[i] = rg.nearestNode(d.Location())
	}
	facilityNodes := make([]string, len(facilities))
	for j, f := range facilities {
		facilityNodes[j] = rg.nearestNode(f.Location())
	}

	m := &Matrix{
		Demand:     demand,
		Facilities: facilities,
		D:          make(map[[2]int]float64),
		N:          make([][]int, len(demand)),
	}
	for i, src := range demandNodes {
		if src == "" {
			continue
		}
		distMeters, _, err := dijkstra.Dijkstra(rg.g, dijkstra.Source(src))
		if err != nil {
			return nil, fmt.Errorf("distance: shortest paths from %s: %w", src, err)
		}
		var neighbors []int
		for j, dst := range facilityNodes {
			if dst == "" {
				continue
			}
			meters, ok := distMeters[dst]
			if !ok || meters >= math.MaxInt64 {
				continue
			}
			m.D[[2]int{i, j}] = float64(meters) / geo.MilesToMeters
			neighbors = append(neighbors, j)
		}
		m.N[i] = neighbors
	}
	return m, nil
}

// graphFor returns the drivable road graph covering bbox, fetching and
// caching it on first use. Concurrent requests for the same box share one
// fetch.
func (n *NetworkOracle) graphFor(ctx context.Context, bbox geo.BoundingBox) (*roadGraph, error) {
	key := cacheKey(bbox)
	if rg, ok := n.cache.Get(key); ok {
		return rg, nil
	}

	result, err, _ := n.group.Do(key, func() (interface{}, error) {
		if rg, ok := n.cache.Get(key); ok {
			return rg, nil
		}
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		fetchCtx, cancel := context.WithTimeout(ctx, n.fetchTimeout)
		defer cancel()
		rg, err := n.fetchGraph(fetchCtx, bbox)
		if err != nil {
			return nil, err
		}
		n.cache.Add(key, rg)
		return rg, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*roadGraph), nil
}

func cacheKey(bbox geo.BoundingBox) string {
	return fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)
}

// radiusMeters implements the download-sizing rule from the Distance
// Oracle contract: the lesser of the configured cap and three quarters of
// the scenario's own span, raised to 10 miles when that is smaller.
func radiusMeters(bbox geo.BoundingBox, capMiles float64) float64 {
	if capMiles <= 0 {
		capMiles = 50
	}
	radiusMiles := math.Min(capMiles, 0.75*bbox.SpanMiles())
	radiusMiles = math.Max(10, radiusMiles)
	return radiusMiles * geo.MilesToMeters
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type  string  `json:"type"`
	ID    int64   `json:"id"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Nodes []int64 `json:"nodes"`
}

// fetchGraph downloads every drivable way within radiusMeters of bbox's
// center and assembles it into a weighted, undirected lvlath graph
// keyed by OSM node id, with edge weights in meters.
func (n *NetworkOracle) fetchGraph(ctx context.Context, bbox geo.BoundingBox) (*roadGraph, error) {
	radius := radiusMeters(bbox, n.radiusCapMiles)
	center := bbox.Center()
	query := buildOverpassQuery(center, radius)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.overpassURL, strings.NewReader("data="+query))
	if err != nil {
		return nil, fmt.Errorf("distance: build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("distance: overpass request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("distance: overpass returned status %d", resp.StatusCode)
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("distance: decode overpass response: %w", err)
	}
	return buildGraph(parsed)
}

// buildOverpassQuery requests every drivable way (and its nodes) within
// radius meters of center, in Overpass QL's "around" filter form.
func buildOverpassQuery(center model.Location, radius float64) string {
	return fmt.Sprintf(
		`[out:json][timeout:25];way(around:%.0f,%.6f,%.6f)["highway"]["highway"!~"footway|path|steps|cycleway|pedestrian"];(._;>;);out body;`,
		radius, center.Lat, center.Lon,
	)
}

// buildGraph converts raw Overpass nodes/ways into a weighted lvlath
// graph: one vertex per node, one edge per consecutive way segment,
// weighted by its haversine length in meters.
func buildGraph(resp overpassResponse) (*roadGraph, error) {
	g := core.NewGraph(core.WithWeighted())

	coords := make(map[int64]model.Location, len(resp.Elements))
	for _, el := range resp.Elements {
		if el.Type == "node" {
			coords[el.ID] = model.Location{Lat: el.Lat, Lon: el.Lon}
		}
	}

	addedVertex := make(map[string]bool, len(coords))
	ensureVertex := func(id string) error {
		if addedVertex[id] {
			return nil
		}
		if err := g.AddVertex(id); err != nil {
			return err
		}
		addedVertex[id] = true
		return nil
	}

	for _, el := range resp.Elements {
		if el.Type != "way" || len(el.Nodes) < 2 {
			continue
		}
		for i := 0; i+1 < len(el.Nodes); i++ {
			fromID, toID := el.Nodes[i], el.Nodes[i+1]
			from, ok1 := coords[fromID]
			to, ok2 := coords[toID]
			if !ok1 || !ok2 {
				continue
			}
			fromKey := nodeKey(fromID)
			toKey := nodeKey(toID)
			if err := ensureVertex(fromKey); err != nil {
				return nil, fmt.Errorf("distance: add node %s: %w", fromKey, err)
			}
			if err := ensureVertex(toKey); err != nil {
				return nil, fmt.Errorf("distance: add node %s: %w", toKey, err)
			}
			weight := int64(geo.HaversineMiles(from, to) * geo.MilesToMeters)
			if _, err := g.AddEdge(fromKey, toKey, weight); err != nil {
				return nil, fmt.Errorf("distance: add edge %s-%s: %w", fromKey, toKey, err)
			}
		}
	}

	return &roadGraph{g: g, coords: coords}, nil
}

func nodeKey(id int64) string {
	return fmt.Sprintf("n%d", id)
}

// nearestNode returns the graph vertex ID closest to loc by haversine
// distance, or "" if the graph has no vertices.
func (rg *roadGraph) nearestNode(loc model.Location) string {
	best := ""
	bestDist := math.Inf(1)
	for _, v := range rg.g.Vertices() {
		var id int64
		if _, err := fmt.Sscanf(v, "n%d", &id); err != nil {
			continue
		}
		c, ok := rg.coords[id]
		if !ok {
			continue
		}
		d := geo.HaversineMiles(loc, c)
		if d < bestDist {
			bestDist = d
			best = v
		}
	}
	return best
}
