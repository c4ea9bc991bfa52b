package styles

import (
	"image/color"

	kml "github.com/twpayne/go-kml"

	types "github.com/stronnag/kml2cot/pkg/types"
)

func colourElement(c *color.RGBA) []kml.Element {
	if c == nil {
		return nil
	}
	return []kml.Element{kml.Color(*c)}
}

func styleChildren(s types.Style) []kml.Element {
	var el []kml.Element
	if s.Icon != nil {
		ic := colourElement(s.Icon.Color)
		if s.Icon.Scale != 0 {
			ic = append(ic, kml.Scale(s.Icon.Scale))
		}
		if s.Icon.Href != "" {
			ic = append(ic, kml.Icon(kml.Href(s.Icon.Href)))
		}
		el = append(el, kml.IconStyle(ic...))
	}
	if s.Label != nil {
		lb := colourElement(s.Label.Color)
		if s.Label.Scale != 0 {
			lb = append(lb, kml.Scale(s.Label.Scale))
		}
		el = append(el, kml.LabelStyle(lb...))
	}
	if s.Line != nil {
		ln := colourElement(s.Line.Color)
		if s.Line.Width != 0 {
			ln = append(ln, kml.Width(s.Line.Width))
		}
		el = append(el, kml.LineStyle(ln...))
	}
	if s.Poly != nil {
		pl := colourElement(s.Poly.Color)
		pl = append(pl, kml.Fill(s.Poly.Fill), kml.Outline(s.Poly.Outline))
		el = append(el, kml.PolyStyle(pl...))
	}
	return el
}

// SharedStyle rebuilds a document level <Style id>.
func SharedStyle(s types.Style) kml.Element {
	return kml.SharedStyle(s.ID, styleChildren(s)...)
}

// InlineStyle rebuilds a placemark's own <Style>.
func InlineStyle(s types.Style) kml.Element {
	return kml.Style(styleChildren(s)...)
}

func SharedStyleMap(m types.StyleMap) kml.Element {
	var pairs []kml.Element
	for _, p := range m.Pairs {
		key := kml.StyleStateNormal
		if p.Key == "highlight" {
			key = kml.StyleStateHighlight
		}
		pairs = append(pairs, kml.Pair(kml.Key(key), kml.StyleURL(p.StyleURL)))
	}
	return kml.SharedStyleMap(m.ID, pairs...)
}
