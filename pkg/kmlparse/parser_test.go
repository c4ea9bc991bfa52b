package kmlparse

import (
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stronnag/kml2cot/pkg/types"
)

const header = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
<Document>
`
const footer = `
</Document>
</kml>
`

func kmlDoc(body string) []byte {
	return []byte(header + body + footer)
}

func parse(t *testing.T, body string, force bool) (*types.Document, []types.Warning, error) {
	t.Helper()
	return Parse(kmlDoc(body), Options{Source: "test.kml", Force: force})
}

func TestParsePoint(t *testing.T) {
	doc, warns, err := parse(t, `<Placemark><name> HQ </name><description>base</description>
<Point><coordinates>10,20,5</coordinates></Point></Placemark>`, false)
	require.NoError(t, err)
	assert.Empty(t, warns)
	require.Len(t, doc.Placemarks, 1)

	pm := doc.Placemarks[0]
	assert.Equal(t, "HQ", pm.Name)
	assert.Equal(t, "base", pm.Description)
	assert.Equal(t, 0, pm.Index)
	pt, ok := pm.Geometry.(types.Point)
	require.True(t, ok)
	assert.Equal(t, types.Coord{Lat: 20, Lon: 10, Alt: 5}, pt.Coord)
}

func TestParseLineAndPolygon(t *testing.T) {
	doc, _, err := parse(t, `
<Placemark><name>road</name><LineString><coordinates>
  1,2 3,4,10
  5,6
</coordinates></LineString></Placemark>
<Placemark><name>field</name><Polygon>
 <outerBoundaryIs><LinearRing><coordinates>0,0 0,1 1,1 1,0 0,0</coordinates></LinearRing></outerBoundaryIs>
 <innerBoundaryIs><LinearRing><coordinates>0.2,0.2 0.2,0.4 0.4,0.4 0.2,0.2</coordinates></LinearRing></innerBoundaryIs>
</Polygon></Placemark>`, false)
	require.NoError(t, err)
	require.Len(t, doc.Placemarks, 2)

	line := doc.Placemarks[0].Geometry.(types.Line)
	assert.Equal(t, []types.Coord{{Lat: 2, Lon: 1}, {Lat: 4, Lon: 3, Alt: 10}, {Lat: 6, Lon: 5}}, line.Points)

	poly := doc.Placemarks[1].Geometry.(types.Polygon)
	assert.Len(t, poly.Outer, 5)
	require.Len(t, poly.Inner, 1)
	assert.Len(t, poly.Inner[0], 4)
	assert.Equal(t, 1, doc.Placemarks[1].Index)
}

func TestParseExtendedDataOrder(t *testing.T) {
	doc, _, err := parse(t, `<Placemark><name>p</name>
<ExtendedData>
  <Data name="b"><value>1</value></Data>
  <SchemaData schemaUrl="#s"><SimpleData name="a">2</SimpleData></SchemaData>
  <Unknown>ignored</Unknown>
  <Data name="b"><displayName>B</displayName><value>3</value></Data>
</ExtendedData>
<Point><coordinates>1,1</coordinates></Point></Placemark>`, false)
	require.NoError(t, err)
	ed := doc.Placemarks[0].ExtendedData
	assert.Equal(t, types.ExtendedData{{Key: "b", Value: "3"}, {Key: "a", Value: "2"}}, ed)
}

func TestParseFoldersAndStyles(t *testing.T) {
	doc, _, err := parse(t, `<name>Doc</name>
<Style id="red"><LineStyle><color>ff0000ff</color><width>2.5</width></LineStyle></Style>
<StyleMap id="map"><Pair><key>normal</key><styleUrl>#red</styleUrl></Pair><Pair><key>highlight</key><styleUrl>#red</styleUrl></Pair></StyleMap>
<Folder><name>Outer</name>
  <Folder name="Inner">
    <Placemark><styleUrl>#map</styleUrl><LineString><coordinates>1,1 2,2</coordinates></LineString></Placemark>
  </Folder>
  <Placemark><Style><PolyStyle><color>7f00ff00</color><fill>0</fill></PolyStyle></Style>
    <Point><coordinates>1,1</coordinates></Point></Placemark>
</Folder>
<Placemark><Point><coordinates>3,3</coordinates></Point></Placemark>`, false)
	require.NoError(t, err)
	assert.Equal(t, "Doc", doc.Name)
	require.Len(t, doc.Placemarks, 3)
	require.Len(t, doc.Styles, 1)
	require.Len(t, doc.StyleMaps, 1)

	assert.Equal(t, []string{"Outer", "Inner"}, doc.Placemarks[0].FolderPath)
	assert.Equal(t, []string{"Outer"}, doc.Placemarks[1].FolderPath)
	assert.Nil(t, doc.Placemarks[2].FolderPath)

	assert.Equal(t, "map", doc.Placemarks[0].StyleRef)
	st := doc.Placemarks[0].Style
	require.NotNil(t, st)
	assert.Equal(t, "red", st.ID)
	assert.Equal(t, &color.RGBA{R: 0xff, A: 0xff}, st.Line.Color)
	assert.Equal(t, 2.5, st.Line.Width)

	inline := doc.Placemarks[1].Style
	require.NotNil(t, inline)
	assert.False(t, inline.Poly.Fill)
	assert.True(t, inline.Poly.Outline)
	assert.Equal(t, &color.RGBA{G: 0xff, A: 0x7f}, inline.Poly.Color)
}

func TestParseSkipsUnclassifiable(t *testing.T) {
	doc, warns, err := parse(t, `
<Placemark><name>one</name><LineString><coordinates>1,1</coordinates></LineString></Placemark>
<Placemark><name>none</name></Placemark>
<Placemark><name>empty</name><Point><coordinates></coordinates></Point></Placemark>
<Placemark><name>ok</name><Point><coordinates>1,1</coordinates></Point></Placemark>`, false)
	require.NoError(t, err)
	require.Len(t, doc.Placemarks, 1)
	assert.Equal(t, 3, doc.Placemarks[0].Index)

	require.Len(t, warns, 3)
	for _, w := range warns {
		assert.Equal(t, types.PlacemarkSkipped, w.Kind)
	}
	assert.ErrorIs(t, warns[0].Err, types.ErrInsufficientVertices)
	assert.ErrorIs(t, warns[1].Err, types.ErrMissingCoordinates)
	assert.ErrorIs(t, warns[2].Err, types.ErrMissingCoordinates)
	assert.Equal(t, "one", warns[0].Name)
}

func TestSingleVertexLineSkipped(t *testing.T) {
	for _, force := range []bool{false, true} {
		doc, warns, err := parse(t, `
<Placemark><name>stub</name><LineString><coordinates>5,6</coordinates></LineString></Placemark>
<Placemark><name>ok</name><LineString><coordinates>1,1 2,2</coordinates></LineString></Placemark>`, force)
		require.NoError(t, err)
		require.Len(t, doc.Placemarks, 1)
		assert.Equal(t, "ok", doc.Placemarks[0].Name)

		require.Len(t, warns, 1)
		assert.Equal(t, types.PlacemarkSkipped, warns[0].Kind)
		assert.Equal(t, 0, warns[0].Placemark)
		assert.True(t, errors.Is(warns[0].Err, types.ErrInsufficientVertices))
		assert.Equal(t, types.InsufficientVertices, types.KindOf(warns[0].Err))
	}
}

func TestParseMultiGeometry(t *testing.T) {
	doc, warns, err := parse(t, `<Placemark><MultiGeometry>
<Point><coordinates>1,1</coordinates></Point>
<LineString><coordinates>1,1 2,2</coordinates></LineString>
</MultiGeometry></Placemark>`, false)
	require.NoError(t, err)
	require.Len(t, doc.Placemarks, 1)
	assert.Equal(t, types.KindLine, doc.Placemarks[0].Geometry.Kind())
	require.Len(t, warns, 1)
	assert.Equal(t, types.MultiGeometryReduced, warns[0].Kind)
}

func TestInvalidCoordinate(t *testing.T) {
	body := `<Placemark><name>r</name><LineString><coordinates>1,1 x,2 3,3 4,95</coordinates></LineString></Placemark>`

	_, _, err := parse(t, body, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidCoordinate)

	doc, warns, err := parse(t, body, true)
	require.NoError(t, err)
	require.Len(t, doc.Placemarks, 1)
	assert.Len(t, doc.Placemarks[0].Geometry.Vertices(), 2)
	require.Len(t, warns, 2)
	assert.Equal(t, types.DroppedVertex, warns[0].Kind)
	assert.Equal(t, types.DroppedVertex, warns[1].Kind)
}

func TestForcedDropDiscardsPlacemark(t *testing.T) {
	doc, warns, err := parse(t, `
<Placemark><name>r</name><LineString><coordinates>1,1 1,2,3,4</coordinates></LineString></Placemark>
<Placemark><name>k</name><Point><coordinates>1,1</coordinates></Point></Placemark>`, true)
	require.NoError(t, err)
	require.Len(t, doc.Placemarks, 1)
	assert.Equal(t, "k", doc.Placemarks[0].Name)
	require.Len(t, warns, 2)
	assert.Equal(t, types.DroppedVertex, warns[0].Kind)
	assert.Equal(t, types.PlacemarkDiscarded, warns[1].Kind)
}

func TestUnescapedAmpersand(t *testing.T) {
	body := `<Placemark><name>a</name><description>fish & chips</description><Point><coordinates>1,1</coordinates></Point></Placemark>`

	_, _, err := parse(t, body, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMalformedXML)
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 4, pe.Pos.Line)
	assert.Equal(t, "test.kml", pe.Source)

	doc, warns, err := parse(t, body, true)
	require.NoError(t, err)
	require.Len(t, warns, 1)
	assert.Equal(t, types.EscapedAmpersand, warns[0].Kind)
	assert.Equal(t, -1, warns[0].Placemark)
	require.Len(t, doc.Placemarks, 1)
	assert.Equal(t, "fish & chips", doc.Placemarks[0].Description)
}

func TestUnclosedTagsRepaired(t *testing.T) {
	data := []byte(`<kml><Document><Placemark><Point><coordinates>1,1</coordinates></Point><name>a</Placemark>`)
	_, _, err := Parse(data, Options{})
	assert.ErrorIs(t, err, types.ErrMalformedXML)

	doc, warns, err := Parse(data, Options{Force: true})
	require.NoError(t, err)
	require.Len(t, warns, 1)
	assert.Equal(t, types.ClosedTags, warns[0].Kind)
	require.Len(t, doc.Placemarks, 1)
	assert.Equal(t, "a", doc.Placemarks[0].Name)
}

func TestEncodingRepaired(t *testing.T) {
	data := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<kml><Placemark><name>Caf\xe9</name><Point><coordinates>1,1</coordinates></Point></Placemark></kml>")
	_, _, err := Parse(data, Options{})
	assert.ErrorIs(t, err, types.ErrMalformedXML)

	doc, warns, err := Parse(data, Options{Force: true})
	require.NoError(t, err)
	require.Len(t, warns, 1)
	assert.Equal(t, types.RecodedUTF8, warns[0].Kind)
	assert.Equal(t, "Café", doc.Placemarks[0].Name)
}

func TestUnrepairable(t *testing.T) {
	_, _, err := Parse([]byte(`<kml><Placemark id=x></Placemark></kml>`), Options{Source: "bad.kml", Force: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnrepairableXML)
	assert.ErrorIs(t, err, types.ErrMalformedXML)
	assert.True(t, strings.HasPrefix(err.Error(), "bad.kml: UnrepairableXml"))
}

func TestEmptyDocument(t *testing.T) {
	doc, warns, err := parse(t, "", false)
	require.NoError(t, err)
	assert.Empty(t, doc.Placemarks)
	assert.Empty(t, warns)

	_, _, err = Parse([]byte("   "), Options{})
	assert.ErrorIs(t, err, types.ErrMalformedXML)
}
