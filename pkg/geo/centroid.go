package geo

import (
	types "github.com/stronnag/kml2cot/pkg/types"
)

// Centroid is the arithmetic mean of the vertices.
func Centroid(pts []types.Coord) types.Coord {
	if len(pts) == 0 {
		return types.Coord{}
	}
	var c types.Coord
	for _, p := range pts {
		c.Lat += p.Lat
		c.Lon += p.Lon
		c.Alt += p.Alt
	}
	n := float64(len(pts))
	c.Lat /= n
	c.Lon /= n
	c.Alt /= n
	return c
}

// RingCentroid is Centroid with a closed ring's repeated last vertex
// counted once.
func RingCentroid(ring []types.Coord) types.Coord {
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n--
	}
	return Centroid(ring[:n])
}

// Anchor is the single position used to place a geometry on the map.
func Anchor(g types.Geometry) types.Coord {
	switch v := g.(type) {
	case types.Point:
		return v.Coord
	case types.Line:
		return Centroid(v.Points)
	case types.Polygon:
		return RingCentroid(v.Outer)
	}
	return types.Coord{}
}
