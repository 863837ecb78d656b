package expr

import "github.com/vinicius-lino-figueiredo/godm/adapter/data"

// Geometry is a GeoJSON object.
type Geometry struct {
	Type        string
	Coordinates any
}

// Point returns a GeoJSON point.
func Point(lng, lat float64) Geometry {
	return Geometry{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Polygon returns a GeoJSON polygon. The first ring is the outer boundary.
func Polygon(rings ...[][]float64) Geometry {
	return Geometry{Type: "Polygon", Coordinates: rings}
}

// Geo holds the geospatial predicates.
type Geo struct {
	Op          Operator
	Path        Path
	Geometry    Geometry
	Box         [][]float64
	MaxDistance *float64
	MinDistance *float64
}

// GeoOption configures $near and $nearSphere predicates.
type GeoOption func(*Geo)

// WithMaxDistance limits results to documents at most d away.
func WithMaxDistance(d float64) GeoOption {
	return func(g *Geo) { g.MaxDistance = &d }
}

// WithMinDistance limits results to documents at least d away.
func WithMinDistance(d float64) GeoOption {
	return func(g *Geo) { g.MinDistance = &d }
}

func newGeo(op Operator, p Path, g Geometry, opts []GeoOption) Geo {
	res := Geo{Op: op, Path: p, Geometry: g}
	for _, opt := range opts {
		opt(&res)
	}
	return res
}

func (g Geo) render() data.M {
	if g.Box != nil {
		return data.M{TokenBox: g.Box}
	}
	res := data.M{
		TokenGeometry: data.M{
			"type":        g.Geometry.Type,
			"coordinates": g.Geometry.Coordinates,
		},
	}
	if g.MaxDistance != nil {
		res[TokenMaxDistance] = *g.MaxDistance
	}
	if g.MinDistance != nil {
		res[TokenMinDistance] = *g.MinDistance
	}
	return res
}
