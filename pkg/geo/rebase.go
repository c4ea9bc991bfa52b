package geo

import (
	"math"
	"strconv"
	"strings"

	types "github.com/stronnag/kml2cot/pkg/types"
)

func Msplit(s string, separators []rune) []string {
	f := func(r rune) bool {
		for _, s := range separators {
			if r == s {
				return true
			}
		}
		return false
	}
	return strings.FieldsFunc(s, f)
}

// Rebaser shifts every position by the offset between the first position it
// sees and a fixed target.
type Rebaser struct {
	jlat, jlon, jalt float64
	hasAlt           bool
	dlat, dlon, dalt float64
	set              bool
}

// NewRebaser parses "lat,lon[,alt]"; '/', ':', ';' and space also separate.
func NewRebaser(spec string) (*Rebaser, error) {
	parts := Msplit(spec, []rune{'/', ':', ';', ' ', ','})
	if len(parts) < 2 || len(parts) > 3 {
		return nil, types.ConfigError("rebase %q: want lat,lon[,alt]", spec)
	}
	var r Rebaser
	var err error
	if r.jlat, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return nil, types.ConfigError("rebase latitude %q", parts[0])
	}
	if r.jlon, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return nil, types.ConfigError("rebase longitude %q", parts[1])
	}
	if len(parts) == 3 {
		if r.jalt, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return nil, types.ConfigError("rebase altitude %q", parts[2])
		}
		r.hasAlt = true
	}
	if !(types.Coord{Lat: r.jlat, Lon: r.jlon}).Valid() {
		return nil, types.ConfigError("rebase %q out of range", spec)
	}
	return &r, nil
}

// Clone returns an unanchored copy, one per input file.
func (r *Rebaser) Clone() *Rebaser {
	c := *r
	c.set = false
	return &c
}

func (r *Rebaser) Anchor(c types.Coord) {
	r.dlat = r.jlat - c.Lat
	r.dlon = r.jlon - c.Lon
	if r.hasAlt {
		r.dalt = r.jalt - c.Alt
	}
	r.set = true
}

// Move shifts c by the anchored offset. Longitude wraps across the
// antimeridian; latitude is clamped at the poles.
func (r *Rebaser) Move(c types.Coord) types.Coord {
	if !r.set {
		r.Anchor(c)
	}
	return types.Coord{
		Lat: math.Max(-90, math.Min(90, c.Lat+r.dlat)),
		Lon: WrapLon(c.Lon + r.dlon),
		Alt: c.Alt + r.dalt,
	}
}

// WrapLon folds a longitude into [-180,180].
func WrapLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func (r *Rebaser) MoveAll(cs []types.Coord) []types.Coord {
	res := make([]types.Coord, len(cs))
	for i, c := range cs {
		res[i] = r.Move(c)
	}
	return res
}
