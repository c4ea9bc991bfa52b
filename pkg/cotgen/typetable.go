package cotgen

import (
	"sort"
	"strings"

	options "github.com/stronnag/kml2cot/pkg/options"
	types "github.com/stronnag/kml2cot/pkg/types"
)

// TypeTable maps geometry kinds to CoT types. A keyword refines the default
// when the placemark's style id, or the value of an extended data key
// containing "type", contains it.
type TypeTable struct {
	Defaults map[types.GeometryKind]string
	Keywords map[types.GeometryKind]map[string]string
}

type keyword struct {
	word, cot string
}

// NewTypeTable builds a table from the configured names.
func NewTypeTable(tc options.TypeConfig) (TypeTable, error) {
	t := TypeTable{
		Defaults: map[types.GeometryKind]string{
			types.KindPoint:   tc.Point,
			types.KindLine:    tc.Line,
			types.KindPolygon: tc.Polygon,
		},
		Keywords: map[types.GeometryKind]map[string]string{},
	}
	for name, kws := range tc.Keywords {
		kind, err := types.ParseGeometryKind(name)
		if err != nil {
			return TypeTable{}, types.ConfigError("type keywords: %v", err)
		}
		m := map[string]string{}
		for k, v := range kws {
			m[strings.ToLower(k)] = v
		}
		t.Keywords[kind] = m
	}
	return t, t.validate()
}

func (t TypeTable) validate() error {
	for _, k := range []types.GeometryKind{types.KindPoint, types.KindLine, types.KindPolygon} {
		if t.Defaults[k] == "" {
			return types.ConfigError("no CoT type for %s", k)
		}
	}
	for k, kws := range t.Keywords {
		for w, v := range kws {
			if w == "" || v == "" {
				return types.ConfigError("empty %s keyword mapping %q=%q", k, w, v)
			}
		}
	}
	return nil
}

// keywords are tried longest first, then alphabetically, so "building"
// beats a shorter keyword it contains.
func (t TypeTable) keywords(kind types.GeometryKind) []keyword {
	var res []keyword
	for w, v := range t.Keywords[kind] {
		res = append(res, keyword{strings.ToLower(w), v})
	}
	sort.Slice(res, func(i, j int) bool {
		if len(res[i].word) != len(res[j].word) {
			return len(res[i].word) > len(res[j].word)
		}
		return res[i].word < res[j].word
	})
	return res
}

// Resolve returns the CoT type and a short description of the rule used.
func (t TypeTable) Resolve(pm types.Placemark) (string, string) {
	kind := pm.Geometry.Kind()
	kws := t.keywords(kind)

	refs := []string{strings.ToLower(pm.StyleRef)}
	if pm.Style != nil {
		refs = append(refs, strings.ToLower(pm.Style.ID))
	}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		for _, kw := range kws {
			if strings.Contains(ref, kw.word) {
				return kw.cot, "style:" + kw.word
			}
		}
	}
	for _, kv := range pm.ExtendedData {
		if !strings.Contains(strings.ToLower(kv.Key), "type") {
			continue
		}
		v := strings.ToLower(kv.Value)
		for _, kw := range kws {
			if strings.Contains(v, kw.word) {
				return kw.cot, "data:" + kv.Key + ":" + kw.word
			}
		}
	}
	return t.Defaults[kind], "default"
}
