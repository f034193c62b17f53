// Package facility loads the ARTCC definition: its airports, the callsign
// prefixes of its positions, its neighbors and its boundary.
package facility

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/vmemphis/data-parser/geo"
)

type Facility struct {
	ID        string      `json:"id"`
	Airports  []string    `json:"airports"`
	Positions []string    `json:"positions"`
	Neighbors []string    `json:"neighbors"`
	Boundary  [][]float64 `json:"coords"`
	Polygon   geo.Polygon `json:"-"`

	airports  map[string]struct{}
	positions map[string]struct{}
	neighbors map[string]struct{}
}

// Load reads a facility definition file and builds its boundary polygon.
func Load(path string) (*Facility, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	fac := &Facility{}
	if err := json.Unmarshal(data, fac); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if err := fac.init(); err != nil {
		return nil, err
	}
	return fac, nil
}

// New builds a facility from already-parsed parts. Boundary coordinates are
// (lon, lat) pairs.
func New(id string, airports, positions, neighbors []string, boundary [][]float64) (*Facility, error) {
	fac := &Facility{
		ID:        id,
		Airports:  airports,
		Positions: positions,
		Neighbors: neighbors,
		Boundary:  boundary,
	}
	if err := fac.init(); err != nil {
		return nil, err
	}
	return fac, nil
}

func (f *Facility) init() error {
	var points []geo.Point
	for i := 0; i < len(f.Boundary); i++ {
		if len(f.Boundary[i]) != 2 {
			return fmt.Errorf("facility %s: boundary point %d has %d coordinates", f.ID, i, len(f.Boundary[i]))
		}
		points = append(points, geo.Point{X: f.Boundary[i][0], Y: f.Boundary[i][1]})
	}

	poly, err := geo.NewPolygon(points)
	if err != nil {
		return fmt.Errorf("facility %s: %w", f.ID, err)
	}
	f.Polygon = poly

	f.airports = toSet(f.Airports)
	f.positions = toSet(f.Positions)
	f.neighbors = toSet(f.Neighbors)
	return nil
}

// toSet upper-cases values. The Is* lookups do the same, so membership is
// case-insensitive.
func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToUpper(v)] = struct{}{}
	}
	return set
}

func (f *Facility) IsAirport(icao string) bool {
	_, ok := f.airports[strings.ToUpper(icao)]
	return ok
}

// IsPosition reports whether prefix is one of the facility's three-letter
// position identifiers.
func (f *Facility) IsPosition(prefix string) bool {
	_, ok := f.positions[strings.ToUpper(prefix)]
	return ok
}

func (f *Facility) IsNeighbor(id string) bool {
	_, ok := f.neighbors[strings.ToUpper(id)]
	return ok
}

// Contains reports whether p is inside the facility boundary.
func (f *Facility) Contains(p geo.Point) bool {
	return geo.PointInPolygon(p, f.Polygon)
}
