package kmlparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stronnag/kml2cot/pkg/types"
)

type badTuple struct {
	Ordinal int
	Text    string
	Reason  string
}

// ParseTuple reads one KML "lon,lat[,alt]" tuple into lat,lon,alt order.
func ParseTuple(tok string) (types.Coord, error) {
	parts := strings.Split(tok, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return types.Coord{}, fmt.Errorf("%d fields, want lon,lat[,alt]", len(parts))
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return types.Coord{}, fmt.Errorf("field %d %q is not a number", i+1, p)
		}
		v[i] = f
	}
	c := types.Coord{Lat: v[1], Lon: v[0], Alt: v[2]}
	if !c.Valid() {
		return types.Coord{}, fmt.Errorf("lat %g lon %g out of range", c.Lat, c.Lon)
	}
	return c, nil
}

// parseCoordinates splits a <coordinates> body on whitespace. Tuples that do
// not parse are reported, not returned.
func parseCoordinates(s string) ([]types.Coord, []badTuple) {
	var coords []types.Coord
	var bad []badTuple
	for i, tok := range strings.Fields(s) {
		c, err := ParseTuple(tok)
		if err != nil {
			bad = append(bad, badTuple{Ordinal: i, Text: tok, Reason: err.Error()})
			continue
		}
		coords = append(coords, c)
	}
	return coords, bad
}
