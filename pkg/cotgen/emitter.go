// Package cotgen maps parsed placemarks to Cursor on Target events, one
// self-contained XML document per placemark.
package cotgen

import (
	"fmt"
	"image/color"
	"log/slog"
	"path"
	"time"

	"github.com/deet/simpleline"

	geo "github.com/stronnag/kml2cot/pkg/geo"
	options "github.com/stronnag/kml2cot/pkg/options"
	styles "github.com/stronnag/kml2cot/pkg/styles"
	types "github.com/stronnag/kml2cot/pkg/types"
)

type Colours struct {
	Point         color.RGBA
	Stroke        color.RGBA
	Fill          color.RGBA
	LineWeight    float64
	PolygonWeight float64
}

type Options struct {
	Types TypeTable
	// HowPoint and HowShape fill the event's how attribute.
	HowPoint string
	HowShape string
	Stale    time.Duration
	// Now is the emission clock; nil means time.Now.
	Now       func() time.Time
	Prefix    string
	StripHTML bool
	// Simplify is the Ramer-Douglas-Peucker epsilon in degrees applied to
	// lines; zero keeps every vertex.
	Simplify float64
	Colours  Colours
	Palette  *styles.Palette
	Rebase   *geo.Rebaser
	Logger   *slog.Logger
}

// OptionsFrom builds emitter options from the resolved configuration.
func OptionsFrom(c *options.Configuration) (Options, error) {
	tt, err := NewTypeTable(c.Types)
	if err != nil {
		return Options{}, err
	}
	o := Options{
		Types:     tt,
		HowPoint:  c.How.Point,
		HowShape:  c.How.Shape,
		Stale:     c.Stale,
		Prefix:    c.Prefix,
		StripHTML: c.StripHTML,
		Simplify:  c.Simplify,
		Colours: Colours{
			LineWeight:    c.Colours.Line,
			PolygonWeight: c.Colours.Poly,
		},
	}
	for _, p := range []struct {
		s string
		c *color.RGBA
	}{{c.Colours.Point, &o.Colours.Point}, {c.Colours.Stroke, &o.Colours.Stroke}, {c.Colours.Fill, &o.Colours.Fill}} {
		if *p.c, err = styles.ParseCSS(p.s); err != nil {
			return Options{}, types.ConfigError("%v", err)
		}
	}
	if c.Gradient != "" {
		if o.Palette, err = styles.NewPalette(c.Gradient); err != nil {
			return Options{}, err
		}
	}
	if c.Rebase != "" {
		if o.Rebase, err = geo.NewRebaser(c.Rebase); err != nil {
			return Options{}, err
		}
	}
	return o, nil
}

// Emitter converts the placemarks of one input. It is not safe for
// concurrent use; a rebase anchors on the first coordinate it sees.
type Emitter struct {
	opts   Options
	rebase *geo.Rebaser
	log    *slog.Logger
}

type Result struct {
	Event    *Event
	Bytes    []byte
	Filename string
	Mapping  Mapping
}

// New checks the options and returns an emitter.
func New(opts Options) (*Emitter, error) {
	if err := opts.Types.validate(); err != nil {
		return nil, err
	}
	switch {
	case opts.HowPoint == "" || opts.HowShape == "":
		return nil, types.ConfigError("how values must not be empty")
	case opts.Stale <= 0:
		return nil, types.ConfigError("stale duration must be positive, got %s", opts.Stale)
	case opts.Simplify < 0:
		return nil, types.ConfigError("simplify epsilon must not be negative, got %g", opts.Simplify)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Colours.LineWeight <= 0 {
		opts.Colours.LineWeight = 4.0
	}
	if opts.Colours.PolygonWeight <= 0 {
		opts.Colours.PolygonWeight = 3.0
	}
	e := &Emitter{opts: opts, log: opts.Logger}
	if e.log == nil {
		e.log = slog.Default()
	}
	if opts.Rebase != nil {
		e.rebase = opts.Rebase.Clone()
	}
	return e, nil
}

func (e *Emitter) prefix(source string) string {
	if e.opts.Prefix != "" {
		return e.opts.Prefix
	}
	return DefaultPrefix(path.Base(source))
}

// Emit builds and serialises the event for one placemark.
func (e *Emitter) Emit(source string, pm types.Placemark) (*Result, error) {
	if pm.Geometry == nil {
		return nil, &types.ParseError{Kind: types.MissingCoordinates, Source: source,
			Message: fmt.Sprintf("placemark %d has no geometry", pm.Index)}
	}
	kind := pm.Geometry.Kind()
	uid := EventUID(source, pm.Index, pm.Name)
	cotType, rule := e.opts.Types.Resolve(pm)

	callsign := pm.Name
	if callsign == "" {
		callsign = fmt.Sprintf("placemark_%d", pm.Index+1)
	}

	now := e.opts.Now().UTC()
	ev := &Event{
		Version: CotVersion,
		UID:     uid,
		Type:    cotType,
		Time:    now.Format(TimeFormat),
		Start:   now.Format(TimeFormat),
		Stale:   now.Add(e.opts.Stale).Format(TimeFormat),
		Detail: Detail{
			Contact: Contact{Callsign: callsign},
			Remarks: Remarks(pm.Description, pm.ExtendedData, e.opts.StripHTML),
		},
	}

	m := Mapping{
		Index:    pm.Index,
		Name:     pm.Name,
		UID:      uid,
		Type:     cotType,
		TypeRule: rule,
		Geometry: kind,
		Callsign: callsign,
		Folder:   pm.FolderPath,
		StyleRef: pm.StyleRef,
	}
	if len(pm.ExtendedData) > 0 {
		m.Data = pm.ExtendedData.Keys()
	}

	switch g := pm.Geometry.(type) {
	case types.Point:
		e.point(ev, &m, pm, g)
	case types.Line:
		e.line(ev, &m, pm, g)
	case types.Polygon:
		e.polygon(ev, &m, pm, g)
	}

	data, err := ev.Marshal()
	if err != nil {
		return nil, err
	}
	m.How = ev.How
	m.File = FileName(e.prefix(source), pm.Index)
	e.log.Debug("event", "source", source, "placemark", pm.Index, "uid", uid, "type", cotType, "rule", rule)
	return &Result{Event: ev, Bytes: data, Filename: m.File, Mapping: m}, nil
}

func (e *Emitter) move(cs []types.Coord) []types.Coord {
	if e.rebase == nil {
		return cs
	}
	return e.rebase.MoveAll(cs)
}

func (e *Emitter) point(ev *Event, m *Mapping, pm types.Placemark, g types.Point) {
	c := e.move([]types.Coord{g.Coord})[0]
	ev.How = e.opts.HowPoint
	ev.Point = pointOf(c)
	m.Anchor = c
	ev.Detail.Status = &Status{Readiness: "true"}
	ev.Detail.Archive = &struct{}{}
	ev.Detail.Precision = &Precision{AltSrc: "???"}

	col, src := e.colour(pm, e.opts.Colours.Point, func(s *types.Style) *color.RGBA {
		if s.Icon != nil {
			return s.Icon.Color
		}
		return nil
	})
	ev.Detail.Color = &Colour{ARGB: fmtARGB(styles.CoTARGB(col))}
	if s := pm.Style; s != nil && s.Icon != nil && s.Icon.Href != "" {
		ev.Detail.UserIcon = &UserIcon{IconSetPath: IconSetPath(s.Icon.Href)}
	}
	m.Vertices = 1
	m.Colour = ev.Detail.Color.ARGB
	m.ColourSource = src
}

func (e *Emitter) line(ev *Event, m *Mapping, pm types.Placemark, g types.Line) {
	pts := e.move(g.Points)
	if e.opts.Simplify > 0 && len(pts) > types.MinLineVertices {
		if s := simplify(pts, e.opts.Simplify); len(s) >= types.MinLineVertices && len(s) < len(pts) {
			m.Simplified = len(pts)
			pts = s
		}
	}
	ev.How = e.opts.HowShape
	m.Anchor = geo.Centroid(pts)
	ev.Point = pointOf(m.Anchor)
	if ev.Type == RouteType {
		ev.Detail.Links = routeLinks(ev.UID, m.Callsign, pts)
		ev.Detail.LinkAttr = routeAttrs()
	} else {
		ev.Detail.Links = vertexLinks(pts)
	}
	e.shape(ev, m, pm, e.opts.Colours.LineWeight, false)
	m.Vertices = len(pts)
}

func (e *Emitter) polygon(ev *Event, m *Mapping, pm types.Placemark, g types.Polygon) {
	outer := e.move(g.Outer)
	ev.How = e.opts.HowShape
	m.Anchor = geo.RingCentroid(outer)
	ev.Point = pointOf(m.Anchor)
	ev.Detail.Links = vertexLinks(outer)
	e.shape(ev, m, pm, e.opts.Colours.PolygonWeight, true)
	m.Vertices = len(outer)
	m.InnerRings = len(g.Inner)
}

func (e *Emitter) shape(ev *Event, m *Mapping, pm types.Placemark, weight float64, fill bool) {
	stroke, src := e.colour(pm, e.opts.Colours.Stroke, func(s *types.Style) *color.RGBA {
		if s.Line != nil {
			return s.Line.Color
		}
		return nil
	})
	if s := pm.Style; s != nil && s.Line != nil && s.Line.Width > 0 {
		weight = s.Line.Width
	}
	ev.Detail.StrokeColor = &Value{fmtARGB(styles.CoTARGB(stroke))}
	ev.Detail.StrokeWeight = &Value{fmtWeight(weight)}
	m.Colour = ev.Detail.StrokeColor.Value
	m.ColourSource = src
	if fill {
		fc, _ := e.colour(pm, e.opts.Colours.Fill, func(s *types.Style) *color.RGBA {
			if s.Poly != nil {
				return s.Poly.Color
			}
			return nil
		})
		if s := pm.Style; s != nil && s.Poly != nil && !s.Poly.Fill {
			fc.A = 0
		}
		ev.Detail.FillColor = &Value{fmtARGB(styles.CoTARGB(fc))}
		m.Fill = ev.Detail.FillColor.Value
	}
	ev.Detail.Contact = Contact{Callsign: m.Callsign}
	ev.Detail.Archive = &struct{}{}
	ev.Detail.LabelsOn = &Value{"false"}
}

// colour picks the style's colour, then the gradient colour for the
// placemark's top folder, then the configured default.
func (e *Emitter) colour(pm types.Placemark, def color.RGBA, pick func(*types.Style) *color.RGBA) (color.RGBA, string) {
	if pm.Style != nil {
		if c := pick(pm.Style); c != nil {
			return *c, "style"
		}
	}
	if e.opts.Palette != nil {
		return e.opts.Palette.ForKey(pm.TopFolder()), "gradient:" + e.opts.Palette.Name()
	}
	return def, "default"
}

func vertexLinks(pts []types.Coord) []Link {
	links := make([]Link, len(pts))
	for i, p := range pts {
		links[i] = Link{Point: linkPoint(p)}
	}
	return links
}

// routeLinks lays a line out as a TAK route: the ends are waypoints, the
// vertices between them check points.
func routeLinks(uid, callsign string, pts []types.Coord) []Link {
	links := make([]Link, len(pts))
	last := len(pts) - 1
	for i, p := range pts {
		l := Link{UID: linkUID(uid, i), Point: linkPoint(p), Relation: "c", Type: CheckType}
		switch i {
		case 0:
			l.Type = WaypointType
			l.Callsign = callsign + " SP"
		case last:
			l.Type = WaypointType
			l.Callsign = fmt.Sprintf("CP%d", i+1)
		}
		links[i] = l
	}
	return links
}

// simplify runs RDP over the horizontal position only, so epsilon stays in
// degrees. Kept vertices retain their altitude.
func simplify(pts []types.Coord, ep float64) []types.Coord {
	points := make([]simpleline.Point, 0, len(pts))
	orig := make(map[simpleline.Point]types.Coord, len(pts))
	for _, c := range pts {
		pt := &simpleline.Point3d{X: c.Lon, Y: c.Lat}
		points = append(points, pt)
		orig[pt] = c
	}
	res, err := simpleline.RDP(points, ep, simpleline.Euclidean, true)
	if err != nil {
		return pts
	}
	out := make([]types.Coord, 0, len(res))
	for _, p := range res {
		out = append(out, orig[p])
	}
	return out
}

// IconSetPath points a KML icon at the Google icon set TAK ships with.
func IconSetPath(href string) string {
	return "f7f71666-8b28-4b57-9fbb-e38e61d33b79/Google/" + path.Base(href)
}
