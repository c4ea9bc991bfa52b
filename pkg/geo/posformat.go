package geo

import (
	"fmt"
	"math"

	types "github.com/stronnag/kml2cot/pkg/types"
)

type axis struct {
	width int
	hemi  [2]byte
}

var (
	latAxis = axis{2, [2]byte{'N', 'S'}}
	lonAxis = axis{3, [2]byte{'E', 'W'}}
)

// sexagesimal renders v as ddd:mm:ss.sH, carrying a seconds value that
// would round to 60.0 into the minutes.
func (a axis) sexagesimal(v float64) string {
	h := a.hemi[0]
	if v < 0 {
		h = a.hemi[1]
	}
	tenths := int64(math.Round(math.Abs(v) * 36000))
	deg := tenths / 36000
	tenths -= deg * 36000
	mins := tenths / 600
	tenths -= mins * 600
	return fmt.Sprintf("%0*d:%02d:%04.1f%c", a.width, deg, mins, float64(tenths)/10, h)
}

func (a axis) format(v float64, dms bool) string {
	if dms {
		return a.sexagesimal(v)
	}
	return fmt.Sprintf("%.6f", v)
}

func LatFormat(lat float64, dms bool) string {
	return latAxis.format(lat, dms)
}

func LonFormat(lon float64, dms bool) string {
	return lonAxis.format(lon, dms)
}

func PositionFormat(lat, lon float64, dms bool) string {
	return LatFormat(lat, dms) + " " + LonFormat(lon, dms)
}

// CoordFormat adds the altitude, in metres, to PositionFormat.
func CoordFormat(c types.Coord, dms bool) string {
	return fmt.Sprintf("%s %.1fm", PositionFormat(c.Lat, c.Lon, dms), c.Alt)
}
