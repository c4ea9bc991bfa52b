package types

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ring(n int) []Coord {
	r := make([]Coord, n)
	for i := range r {
		r[i] = Coord{Lat: float64(i), Lon: float64(i) * 2}
	}
	return r
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawGeometry
		kind    GeometryKind
		verts   int
		wantErr error
	}{
		{"point", RawGeometry{Kind: KindPoint, Present: true, Rings: [][]Coord{{{Lat: 20, Lon: 10, Alt: 5}}}}, KindPoint, 1, nil},
		{"point without coordinates element", RawGeometry{Kind: KindPoint}, 0, 0, ErrMissingCoordinates},
		{"point with empty coordinates", RawGeometry{Kind: KindPoint, Present: true, Rings: [][]Coord{{}}}, 0, 0, ErrMissingCoordinates},
		{"line", RawGeometry{Kind: KindLine, Present: true, Rings: [][]Coord{ring(2)}}, KindLine, 2, nil},
		{"line with one vertex", RawGeometry{Kind: KindLine, Present: true, Rings: [][]Coord{ring(1)}}, 0, 0, ErrInsufficientVertices},
		{"polygon", RawGeometry{Kind: KindPolygon, Present: true, Rings: [][]Coord{ring(5)}}, KindPolygon, 5, nil},
		{"polygon short outer", RawGeometry{Kind: KindPolygon, Present: true, Rings: [][]Coord{ring(3)}}, 0, 0, ErrInsufficientVertices},
		{"polygon short inner", RawGeometry{Kind: KindPolygon, Present: true, Rings: [][]Coord{ring(4), ring(2)}}, 0, 0, ErrInsufficientVertices},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Classify(tt.raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, g)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, g.Kind())
			assert.Len(t, g.Vertices(), tt.verts)
		})
	}
}

func TestClassifyPolygonInnerRings(t *testing.T) {
	g, err := Classify(RawGeometry{Kind: KindPolygon, Present: true, Rings: [][]Coord{ring(5), ring(4), ring(4)}})
	require.NoError(t, err)
	p, ok := g.(Polygon)
	require.True(t, ok)
	assert.Len(t, p.Inner, 2)
	assert.Len(t, p.Outer, 5)
}

func TestClassifyCopiesInput(t *testing.T) {
	in := ring(3)
	g, err := Classify(RawGeometry{Kind: KindLine, Present: true, Rings: [][]Coord{in}})
	require.NoError(t, err)
	in[0].Lat = 99
	assert.Equal(t, 0.0, g.Vertices()[0].Lat)
}

func TestGeometryKindNames(t *testing.T) {
	for _, k := range []GeometryKind{KindPoint, KindLine, KindPolygon} {
		got, err := ParseGeometryKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseGeometryKind("circle")
	assert.Error(t, err)
}

func TestParseErrorMatching(t *testing.T) {
	err := NewParseError(MalformedXml, Position{Line: 3, Column: 7}, "unexpected EOF").WithSource("a.kml")
	wrapped := fmt.Errorf("convert: %w", err)

	assert.ErrorIs(t, wrapped, ErrMalformedXML)
	assert.False(t, errors.Is(wrapped, ErrUnrepairableXML))
	assert.Equal(t, MalformedXml, KindOf(wrapped))
	assert.Equal(t, "a.kml: MalformedXml at line 3, column 7: unexpected EOF", err.Error())

	cause := errors.New("boom")
	pe := &ParseError{Kind: UnrepairableXml, Err: cause}
	assert.ErrorIs(t, pe, cause)
	assert.Equal(t, ErrorKind(0), KindOf(cause))
	assert.ErrorIs(t, ConfigError("max %d", 0), ErrInvalidConfiguration)
}

func TestExtendedDataLastWriteWins(t *testing.T) {
	var e ExtendedData
	e.Set("a", "1")
	e.Set("b", "2")
	e.Set("a", "3")

	assert.Equal(t, []string{"a", "b"}, e.Keys())
	v, ok := e.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	_, ok = e.Get("c")
	assert.False(t, ok)
}

func TestResolveStyle(t *testing.T) {
	doc := &Document{
		Styles: []Style{{ID: "n", Line: &LineStyle{Width: 2}}, {ID: "h"}},
		StyleMaps: []StyleMap{{ID: "m", Pairs: []StylePair{
			{Key: "highlight", StyleURL: "#h"},
			{Key: "normal", StyleURL: "#n"},
		}}},
	}
	inline := &Style{ID: "inline"}

	assert.Nil(t, doc.ResolveStyle(Placemark{}))
	assert.Same(t, inline, doc.ResolveStyle(Placemark{StyleRef: "n", InlineStyle: inline}))
	assert.Equal(t, "n", doc.ResolveStyle(Placemark{StyleRef: "n"}).ID)
	assert.Equal(t, "n", doc.ResolveStyle(Placemark{StyleRef: "m"}).ID)
	assert.Nil(t, doc.ResolveStyle(Placemark{StyleRef: "missing"}))
}

func TestTrimRef(t *testing.T) {
	for in, want := range map[string]string{
		"#red":               "red",
		"red":                "red",
		"":                   "",
		"shared.kml#red":     "",
		"http://x/y.kml#red": "",
		"styles/common.kml":  "",
	} {
		assert.Equal(t, want, TrimRef(in), in)
	}
	m := StyleMap{Pairs: []StylePair{{Key: "normal", StyleURL: "other.kml#n"}}}
	assert.Empty(t, m.Normal())
}

func TestWarningString(t *testing.T) {
	w := Warning{Kind: DroppedVertex, Source: "x.kml", Placemark: 2, Name: "road", Message: "bad tuple"}
	assert.Equal(t, "x.kml: dropped-vertex [placemark 2 road]: bad tuple", w.String())
	w = Warning{Kind: EscapedAmpersand, Placemark: -1, Message: "1 escaped"}
	assert.Equal(t, "escape-ampersand: 1 escaped", w.String())
}

func TestEvinceFileType(t *testing.T) {
	dir := t.TempDir()
	kml := filepath.Join(dir, "a.dat")
	kmz := filepath.Join(dir, "b.dat")
	other := filepath.Join(dir, "c.dat")
	require.NoError(t, os.WriteFile(kml, []byte(`<?xml version="1.0"?><kml/>`), 0644))
	require.NoError(t, os.WriteFile(kmz, []byte("PK\x03\x04rest"), 0644))
	require.NoError(t, os.WriteFile(other, []byte("Date,Time,"), 0644))

	for fn, want := range map[string]int{kml: IS_KML, kmz: IS_KMZ, other: IS_UNKNOWN} {
		got, err := EvinceFileType(fn)
		require.NoError(t, err)
		assert.Equal(t, want, got, fn)
	}
	_, err := EvinceFileType(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
