// Package kmlsplit partitions a parsed document into bounded chunks, each
// carrying only the styles its own placemarks reference.
package kmlsplit

import (
	types "github.com/stronnag/kml2cot/pkg/types"
)

type Options struct {
	MaxPerFile int
	// ByFolder also starts a chunk whenever the top level folder changes.
	ByFolder bool
	KMZ      bool
}

// Split fills chunks of at most MaxPerFile placemarks in document order.
func Split(doc *types.Document, opts Options) ([]*types.Document, error) {
	if opts.MaxPerFile <= 0 {
		return nil, types.ConfigError("max placemarks per file must be positive, got %d", opts.MaxPerFile)
	}
	var chunks []*types.Document
	var cur *types.Document
	for _, pm := range doc.Placemarks {
		if cur == nil || len(cur.Placemarks) == opts.MaxPerFile ||
			(opts.ByFolder && pm.TopFolder() != cur.Placemarks[0].TopFolder()) {
			cur = &types.Document{Source: doc.Source, Name: doc.Name}
			chunks = append(chunks, cur)
		}
		cur.Placemarks = append(cur.Placemarks, pm)
	}
	for _, c := range chunks {
		c.Styles, c.StyleMaps = closure(doc, c.Placemarks)
	}
	return chunks, nil
}

// closure collects the Style and StyleMap definitions reachable from the
// placemarks' style references, returned in their original order.
func closure(doc *types.Document, pms []types.Placemark) ([]types.Style, []types.StyleMap) {
	seen := map[string]bool{}
	var work []string
	push := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			work = append(work, id)
		}
	}
	for _, pm := range pms {
		push(pm.StyleRef)
	}
	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		if m, ok := doc.StyleMapByID(id); ok {
			for _, p := range m.Pairs {
				push(types.TrimRef(p.StyleURL))
			}
		}
	}

	var st []types.Style
	for _, s := range doc.Styles {
		if seen[s.ID] {
			st = append(st, s)
		}
	}
	var sm []types.StyleMap
	for _, m := range doc.StyleMaps {
		if seen[m.ID] {
			sm = append(sm, m)
		}
	}
	return st, sm
}
