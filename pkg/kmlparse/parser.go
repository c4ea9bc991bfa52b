// Package kmlparse reads KML placemarks, folders and styles into the
// geometry model. In force mode malformed documents are passed through a
// fixed sequence of textual repairs before giving up.
package kmlparse

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/stronnag/kml2cot/pkg/types"
)

type Options struct {
	// Source names the input in errors, warnings and uids.
	Source string
	Force  bool
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Parse decodes a KML document. Without Force any malformed markup fails
// the whole document with MalformedXml; with Force the repairs are tried in
// order, each successful one adding a warning.
func Parse(data []byte, opts Options) (*types.Document, []types.Warning, error) {
	doc, warns, err := parseDocument(data, opts)
	if err == nil || !opts.Force || types.KindOf(err) != types.MalformedXml {
		return doc, warns, err
	}

	log := opts.logger()
	var repaired []types.Warning
	last := err
	buf := data
	for _, r := range Repairs {
		out, n := r.Apply(buf)
		if n == 0 {
			continue
		}
		buf = out
		w := types.Warning{Kind: r.Kind, Source: opts.Source, Placemark: -1,
			Message: fmt.Sprintf(r.Message, n), Err: last}
		repaired = append(repaired, w)
		log.Debug("repair applied", "source", opts.Source, "repair", r.Kind.String(), "changes", n)

		doc, warns, err = parseDocument(buf, opts)
		if err == nil {
			return doc, append(repaired, warns...), nil
		}
		if types.KindOf(err) != types.MalformedXml {
			return nil, nil, err
		}
		last = err
	}

	var pe *types.ParseError
	pos := types.Position{}
	if errors.As(last, &pe) {
		pos = pe.Pos
	}
	return nil, nil, &types.ParseError{Kind: types.UnrepairableXml, Source: opts.Source, Pos: pos,
		Message: fmt.Sprintf("%d repairs applied", len(repaired)), Err: last}
}

type folder struct {
	name  string
	depth int
}

type parser struct {
	opts    Options
	dec     *xml.Decoder
	doc     *types.Document
	warns   []types.Warning
	stack   []string
	folders []folder
	index   int
}

func parseDocument(data []byte, opts Options) (*types.Document, []types.Warning, error) {
	p := &parser{
		opts: opts,
		dec:  xml.NewDecoder(bytes.NewReader(data)),
		doc:  &types.Document{Source: opts.Source},
	}
	p.dec.Strict = true
	if err := p.run(); err != nil {
		return nil, nil, err
	}
	for i := range p.doc.Placemarks {
		p.doc.Placemarks[i].Style = p.doc.ResolveStyle(p.doc.Placemarks[i])
	}
	return p.doc, p.warns, nil
}

func (p *parser) pos() types.Position {
	line, col := p.dec.InputPos()
	return types.Position{Line: line, Column: col}
}

func (p *parser) malformed(err error) error {
	return &types.ParseError{Kind: types.MalformedXml, Source: p.opts.Source, Pos: p.pos(),
		Message: "malformed document", Err: err}
}

func (p *parser) parent() string {
	if n := len(p.stack); n > 0 {
		return p.stack[n-1]
	}
	return ""
}

func (p *parser) run() error {
	seenRoot := false
	for {
		t, err := p.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.malformed(err)
		}
		switch se := t.(type) {
		case xml.StartElement:
			seenRoot = true
			if err := p.start(se); err != nil {
				return err
			}
		case xml.EndElement:
			if n := len(p.stack); n > 0 {
				p.stack = p.stack[:n-1]
			}
			if nf := len(p.folders); nf > 0 && p.folders[nf-1].depth == len(p.stack) && se.Name.Local == "Folder" {
				p.folders = p.folders[:nf-1]
			}
		}
	}
	if !seenRoot {
		return p.malformed(errors.New("no root element"))
	}
	return nil
}

func (p *parser) start(se xml.StartElement) error {
	switch se.Name.Local {
	case "Placemark":
		start := p.pos()
		var xp xmlPlacemark
		if err := p.dec.DecodeElement(&xp, &se); err != nil {
			return p.malformed(err)
		}
		idx := p.index
		p.index++
		return p.placemark(idx, start, &xp)

	case "Style":
		var xs xmlStyle
		if err := p.dec.DecodeElement(&xs, &se); err != nil {
			return p.malformed(err)
		}
		if xs.ID != "" {
			p.doc.Styles = append(p.doc.Styles, xs.style())
		}
		return nil

	case "StyleMap":
		var xm xmlStyleMap
		if err := p.dec.DecodeElement(&xm, &se); err != nil {
			return p.malformed(err)
		}
		if xm.ID != "" {
			p.doc.StyleMaps = append(p.doc.StyleMaps, xm.styleMap())
		}
		return nil

	case "name":
		parent := p.parent()
		if parent != "Folder" && parent != "Document" {
			break
		}
		var name string
		if err := p.dec.DecodeElement(&name, &se); err != nil {
			return p.malformed(err)
		}
		name = strings.TrimSpace(name)
		if parent == "Folder" {
			if nf := len(p.folders); nf > 0 && p.folders[nf-1].name == "" {
				p.folders[nf-1].name = name
			}
		} else if p.doc.Name == "" {
			p.doc.Name = name
		}
		return nil

	case "Folder":
		p.folders = append(p.folders, folder{name: attr(se, "name"), depth: len(p.stack)})
	}
	p.stack = append(p.stack, se.Name.Local)
	return nil
}

func (p *parser) folderPath() []string {
	if len(p.folders) == 0 {
		return nil
	}
	path := make([]string, len(p.folders))
	for i, f := range p.folders {
		path[i] = f.name
	}
	return path
}

func (p *parser) warn(kind types.WarningKind, idx int, name string, err error, format string, args ...any) {
	p.warns = append(p.warns, types.Warning{Kind: kind, Source: p.opts.Source, Placemark: idx,
		Name: name, Message: fmt.Sprintf(format, args...), Err: err})
}

func (p *parser) placemark(idx int, start types.Position, xp *xmlPlacemark) error {
	pm := types.Placemark{
		Index:       idx,
		Name:        strings.TrimSpace(xp.Name),
		Description: xp.Description,
		StyleURL:    strings.TrimSpace(xp.StyleURL),
		FolderPath:  p.folderPath(),
	}
	pm.StyleRef = types.TrimRef(pm.StyleURL)
	if xp.ExtendedData != nil {
		pm.ExtendedData = xp.ExtendedData.Items
	}
	if xp.Style != nil {
		s := xp.Style.style()
		pm.InlineStyle = &s
	}

	shape, ok := p.rawGeometry(idx, pm.Name, xp)
	if !ok {
		err := &types.ParseError{Kind: types.MissingCoordinates, Source: p.opts.Source, Pos: start,
			Message: "placemark has no supported geometry"}
		p.warn(types.PlacemarkSkipped, idx, pm.Name, err, "%v", err)
		return nil
	}

	raw := types.RawGeometry{Kind: shape.kind, Present: shape.present}
	dropped := 0
	for _, r := range shape.rings {
		coords, n, err := p.checkRing(idx, pm.Name, start, r)
		if err != nil {
			return err
		}
		raw.Rings = append(raw.Rings, coords)
		dropped += n
	}
	if dropped > 0 && short(raw) {
		p.warn(types.PlacemarkDiscarded, idx, pm.Name, nil,
			"%s below %d vertices after dropping %d", raw.Kind, types.MinVertices(raw.Kind), dropped)
		return nil
	}

	g, err := types.Classify(raw)
	if err != nil {
		var pe *types.ParseError
		if errors.As(err, &pe) {
			pe = pe.WithSource(p.opts.Source)
			pe.Pos = start
			err = pe
		}
		p.warn(types.PlacemarkSkipped, idx, pm.Name, err, "%v", err)
		return nil
	}
	pm.Geometry = g
	p.doc.Placemarks = append(p.doc.Placemarks, pm)
	return nil
}

// checkRing applies the coordinate policy: a bad tuple is fatal unless
// forced, when it is dropped with a warning.
func (p *parser) checkRing(idx int, name string, start types.Position, ring rawRing) ([]types.Coord, int, error) {
	if len(ring.bad) == 0 {
		return ring.coords, 0, nil
	}
	if !p.opts.Force {
		b := ring.bad[0]
		return nil, 0, &types.ParseError{Kind: types.InvalidCoordinate, Source: p.opts.Source, Pos: start,
			Message: fmt.Sprintf("placemark %d tuple %d %q: %s", idx, b.Ordinal+1, b.Text, b.Reason)}
	}
	for _, b := range ring.bad {
		p.warn(types.DroppedVertex, idx, name, nil, "tuple %d %q: %s", b.Ordinal+1, b.Text, b.Reason)
	}
	return ring.coords, len(ring.bad), nil
}

func short(raw types.RawGeometry) bool {
	if len(raw.Rings) == 0 || len(raw.Rings[0]) < types.MinVertices(raw.Kind) {
		return true
	}
	for _, r := range raw.Rings[1:] {
		if len(r) < types.MinRingVertices {
			return true
		}
	}
	return false
}
