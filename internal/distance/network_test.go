package distance

import (
	"testing"

	"github.com/katalvlaran/lvlath/dijkstra"

	"github.com/gsudice/nsf-cosea/internal/model"
	"github.com/gsudice/nsf-cosea/pkg/geo"
)

func TestRadiusMeters_FloorAndCap(t *testing.T) {
	tiny := geo.NewBoundingBox([]model.Location{{Lat: 33, Lon: -84}, {Lat: 33.001, Lon: -84.001}})
	if got := radiusMeters(tiny, 50); got != 10*geo.MilesToMeters {
		t.Errorf("expected the 10-mile floor for a tiny bbox, got %v meters", got)
	}

	huge := geo.NewBoundingBox([]model.Location{{Lat: 30, Lon: -90}, {Lat: 40, Lon: -80}})
	if got := radiusMeters(huge, 50); got != 50*geo.MilesToMeters {
		t.Errorf("expected the configured cap for a huge bbox, got %v meters", got)
	}
}

func TestBuildGraph_AssemblesEdgesFromWayNodes(t *testing.T) {
	resp := overpassResponse{Elements: []overpassElement{
		{Type: "node", ID: 1, Lat: 33.0, Lon: -84.0},
		{Type: "node", ID: 2, Lat: 33.01, Lon: -84.0},
		{Type: "node", ID: 3, Lat: 33.02, Lon: -84.0},
		{Type: "way", ID: 100, Nodes: []int64{1, 2, 3}},
	}}
	rg, err := buildGraph(resp)
	if err != nil {
		t.Fatalf("buildGraph returned error: %v", err)
	}
	if len(rg.g.Vertices()) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(rg.g.Vertices()))
	}
	if len(rg.g.Edges()) != 2 {
		t.Fatalf("expected 2 edges from a 3-node way, got %d", len(rg.g.Edges()))
	}
}

func TestRoadGraph_NearestNode(t *testing.T) {
	resp := overpassResponse{Elements: []overpassElement{
		{Type: "node", ID: 1, Lat: 33.0, Lon: -84.0},
		{Type: "node", ID: 2, Lat: 34.0, Lon: -85.0},
		{Type: "way", ID: 100, Nodes: []int64{1, 2}},
	}}
	rg, err := buildGraph(resp)
	if err != nil {
		t.Fatalf("buildGraph returned error: %v", err)
	}
	got := rg.nearestNode(model.Location{Lat: 33.01, Lon: -84.01})
	if got != nodeKey(1) {
		t.Errorf("expected nearest node %s, got %s", nodeKey(1), got)
	}
}

// TestNetworkDistance_AgreesWithHaversineOnStraightRoad drives the
// single-interstate scenario: two schools ~12 miles apart connected by
// one straight road. The shortest network path should land within 20%
// of the great-circle distance.
func TestNetworkDistance_AgreesWithHaversineOnStraightRoad(t *testing.T) {
	const startLat, lon = 33.0, -84.0
	elements := []overpassElement{}
	var nodeIDs []int64
	// ~12 miles along a meridian, one node every ~0.7 miles.
	for i := 0; i <= 17; i++ {
		id := int64(i + 1)
		elements = append(elements, overpassElement{
			Type: "node", ID: id, Lat: startLat + float64(i)*0.0102, Lon: lon,
		})
		nodeIDs = append(nodeIDs, id)
	}
	elements = append(elements, overpassElement{Type: "way", ID: 100, Nodes: nodeIDs})

	rg, err := buildGraph(overpassResponse{Elements: elements})
	if err != nil {
		t.Fatalf("buildGraph returned error: %v", err)
	}

	schoolA := model.Location{Lat: startLat, Lon: lon}
	schoolB := model.Location{Lat: startLat + 17*0.0102, Lon: lon}

	src := rg.nearestNode(schoolA)
	dst := rg.nearestNode(schoolB)
	dist, _, err := dijkstra.Dijkstra(rg.g, dijkstra.Source(src))
	if err != nil {
		t.Fatalf("Dijkstra returned error: %v", err)
	}
	networkMiles := float64(dist[dst]) / geo.MilesToMeters
	haversine := geo.HaversineMiles(schoolA, schoolB)

	if haversine < 10 || haversine > 14 {
		t.Fatalf("scenario setup drifted: haversine = %.2f mi, want ~12 mi", haversine)
	}
	if ratio := networkMiles / haversine; ratio < 0.8 || ratio > 1.2 {
		t.Errorf("network distance %.2f mi deviates more than 20%% from haversine %.2f mi", networkMiles, haversine)
	}
}

func TestRoadGraph_NearestNode_EmptyGraph(t *testing.T) {
	rg, err := buildGraph(overpassResponse{})
	if err != nil {
		t.Fatalf("buildGraph returned error: %v", err)
	}
	if got := rg.nearestNode(model.Location{Lat: 0, Lon: 0}); got != "" {
		t.Errorf("expected empty string for empty graph, got %q", got)
	}
}
