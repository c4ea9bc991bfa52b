package batch

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cotgen "github.com/stronnag/kml2cot/pkg/cotgen"
	ledger "github.com/stronnag/kml2cot/pkg/ledger"
	options "github.com/stronnag/kml2cot/pkg/options"
	types "github.com/stronnag/kml2cot/pkg/types"
)

const goodKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2"><Document><name>d</name>
<Placemark><name>one</name><Point><coordinates>1,2</coordinates></Point></Placemark>
<Placemark><name>two</name><LineString><coordinates>1,1 2,2 3,3</coordinates></LineString></Placemark>
</Document></kml>
`

const badKML = `<kml><Document><Placemark><name>fish & chips</name><Point><coordinates>1,1</coordinates></Point></Placemark></Document></kml>`

var epoch = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func writeInput(t *testing.T, dir, name, body string) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(fn), 0o755))
	require.NoError(t, os.WriteFile(fn, []byte(body), 0o644))
	return fn
}

func testDriver(t *testing.T) (*Driver, string) {
	t.Helper()
	cfg := options.Defaults()
	cfg.Outdir = filepath.Join(t.TempDir(), "out")
	cfg.Workers = 2
	return &Driver{
		Config: &cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Emit:   func(o *cotgen.Options) { o.Now = func() time.Time { return epoch } },
	}, cfg.Outdir
}

func TestConvertContinuesPastFailure(t *testing.T) {
	in := t.TempDir()
	writeInput(t, in, "a.kml", goodKML)
	writeInput(t, in, "b.kml", badKML)
	writeInput(t, in, "c.kml", goodKML)

	d, out := testDriver(t)
	res, err := d.Convert(context.Background(), []string{in})
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.False(t, res[0].Failed())
	assert.True(t, res[1].Failed())
	assert.ErrorIs(t, res[1].Err, types.ErrMalformedXML)
	assert.False(t, res[2].Failed())

	fails := Failures(res)
	require.Len(t, fails, 1)
	assert.Equal(t, "b.kml", fails[0].Input.Source)

	for _, fn := range []string{"a_1.cot", "a_2.cot", "c_1.cot", "c_2.cot"} {
		assert.FileExists(t, filepath.Join(out, fn))
	}
	assert.NoFileExists(t, filepath.Join(out, "b_1.cot"))
	assert.Equal(t, 2, res[0].Placemarks)
	assert.Len(t, res[0].Outputs, 2)
	assert.NotZero(t, res[0].Bytes)
}

func TestConvertForceRepairs(t *testing.T) {
	in := t.TempDir()
	fn := writeInput(t, in, "b.kml", badKML)
	d, out := testDriver(t)
	d.Config.Force = true

	res, err := d.Convert(context.Background(), []string{fn})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.NoError(t, res[0].Err)
	require.Len(t, res[0].Warnings, 1)
	assert.Equal(t, types.EscapedAmpersand, res[0].Warnings[0].Kind)

	data, err := os.ReadFile(filepath.Join(out, "b_1.cot"))
	require.NoError(t, err)
	ev, err := cotgen.ReadEvent(data)
	require.NoError(t, err)
	assert.Equal(t, "fish & chips", ev.Detail.Contact.Callsign)
	assert.Equal(t, epoch.Format(cotgen.TimeFormat), ev.Time)
}

func writeKMZ(t *testing.T, fn, body string) {
	t.Helper()
	f, err := os.Create(fn)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("files/readme.txt")
	require.NoError(t, err)
	w.Write([]byte("ignore me"))
	w, err = zw.Create("doc.kml")
	require.NoError(t, err)
	w.Write([]byte(body))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestConvertKMZ(t *testing.T) {
	in := t.TempDir()
	writeKMZ(t, filepath.Join(in, "z.kmz"), goodKML)

	d, out := testDriver(t)
	res, err := d.Convert(context.Background(), []string{in})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.NoError(t, res[0].Err)
	assert.FileExists(t, filepath.Join(out, "z_1.cot"))
	assert.FileExists(t, filepath.Join(out, "z_2.cot"))
}

func cotFiles(t *testing.T, dir string) []string {
	t.Helper()
	m, err := filepath.Glob(filepath.Join(dir, "*.cot"))
	require.NoError(t, err)
	return m
}

func assertDistinct(t *testing.T, res []FileResult) {
	t.Helper()
	seen := map[string]string{}
	uids := map[string]bool{}
	for _, r := range res {
		require.NoError(t, r.Err, r.Input.Source)
		for _, o := range r.Outputs {
			prev, dup := seen[o]
			assert.False(t, dup, "%s written by %s and %s", o, prev, r.Input.Source)
			seen[o] = r.Input.Source
		}
		for _, m := range r.Events {
			assert.False(t, uids[m.UID], "uid %s repeated", m.UID)
			uids[m.UID] = true
		}
	}
}

func TestConvertSameBaseName(t *testing.T) {
	in := t.TempDir()
	x1 := writeInput(t, in, "d1/x.kml", goodKML)
	x2 := writeInput(t, in, "d2/x.kml", goodKML)

	inputs, err := Discover([]string{x1, x2}, "*.kml")
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.NotEqual(t, inputs[0].Source, inputs[1].Source)
	assert.True(t, strings.HasSuffix(inputs[0].Source, "d1/x.kml"), inputs[0].Source)

	d, out := testDriver(t)
	res, err := d.Convert(context.Background(), []string{x1, x2})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assertDistinct(t, res)
	assert.Len(t, cotFiles(t, out), 4)
}

func TestConvertSanitisedNamesCollide(t *testing.T) {
	in := t.TempDir()
	writeInput(t, in, "a b.kml", goodKML)
	writeInput(t, in, "a_b.kml", goodKML)

	d, out := testDriver(t)
	res, err := d.Convert(context.Background(), []string{in})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assertDistinct(t, res)
	assert.Len(t, cotFiles(t, out), 4)
	assert.FileExists(t, filepath.Join(out, "a_b_"+cotgen.SourceTag("a b.kml")+"_1.cot"))
	assert.FileExists(t, filepath.Join(out, "a_b_"+cotgen.SourceTag("a_b.kml")+"_1.cot"))
}

func TestConvertSameStemDifferentExtension(t *testing.T) {
	in := t.TempDir()
	writeInput(t, in, "x.kml", goodKML)
	writeKMZ(t, filepath.Join(in, "x.kmz"), goodKML)

	d, out := testDriver(t)
	res, err := d.Convert(context.Background(), []string{in})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assertDistinct(t, res)
	assert.Len(t, cotFiles(t, out), 4)
	assert.NoFileExists(t, filepath.Join(out, "x_1.cot"))
}

func TestConvertRemainingClashFails(t *testing.T) {
	in := t.TempDir()
	writeInput(t, in, "a b.kml", goodKML)
	writeInput(t, in, "a_b.kml", goodKML)
	writeInput(t, in, "a_b_"+cotgen.SourceTag("a b.kml")+".kml", goodKML)

	d, out := testDriver(t)
	res, err := d.Convert(context.Background(), []string{in})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.NoError(t, res[0].Err)
	assert.NoError(t, res[1].Err)
	assert.ErrorIs(t, res[2].Err, ErrOutputClash)
	assert.Empty(t, res[2].Outputs)
	assert.Len(t, cotFiles(t, out), 4)
}

func TestSplitSameStemDifferentExtension(t *testing.T) {
	in := t.TempDir()
	writeInput(t, in, "x.kml", goodKML)
	writeKMZ(t, filepath.Join(in, "x.kmz"), goodKML)

	d, out := testDriver(t)
	res, err := d.Split(context.Background(), []string{in})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assertDistinct(t, res)
	m, err := filepath.Glob(filepath.Join(out, "*.kml"))
	require.NoError(t, err)
	assert.Len(t, m, 2)
}

func TestConvertPrefix(t *testing.T) {
	in := t.TempDir()
	a := writeInput(t, in, "a.kml", goodKML)
	writeInput(t, in, "sub/c.kml", goodKML)

	d, out := testDriver(t)
	d.Config.Prefix = "ops"
	_, err := d.Convert(context.Background(), []string{a})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "ops_1.cot"))

	_, err = d.Convert(context.Background(), []string{in})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "ops_a_1.cot"))
	assert.FileExists(t, filepath.Join(out, "ops_sub_c_1.cot"))
}

func TestConvertDebug(t *testing.T) {
	in := t.TempDir()
	fn := writeInput(t, in, "a.kml", goodKML)
	d, out := testDriver(t)
	d.Config.Debug = true

	res, err := d.Convert(context.Background(), []string{fn})
	require.NoError(t, err)
	require.NoError(t, res[0].Err)
	assert.Equal(t, filepath.Join(out, "a.diag.yaml"), res[0].Diag)

	f, err := os.Open(res[0].Diag)
	require.NoError(t, err)
	defer f.Close()
	diag, err := cotgen.ReadDiagnostic(f)
	require.NoError(t, err)
	assert.Equal(t, "a.kml", diag.Source)
	assert.Equal(t, "d", diag.Document)
	require.Len(t, diag.Events, 2)
	assert.Equal(t, "a_1.cot", diag.Events[0].File)
	assert.Equal(t, types.KindLine, diag.Events[1].Geometry)
}

func TestConvertLedger(t *testing.T) {
	in := t.TempDir()
	writeInput(t, in, "a.kml", goodKML)
	writeInput(t, in, "b.kml", badKML)

	l, err := ledger.Open(filepath.Join(t.TempDir(), "runs.db"), "convert")
	require.NoError(t, err)
	defer l.Close()

	d, _ := testDriver(t)
	d.Ledger = l
	_, err = d.Convert(context.Background(), []string{in})
	require.NoError(t, err)

	files, err := l.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, ledger.StatusOK, files[0].Status)
	assert.Equal(t, 2, files[0].Events)
	assert.Equal(t, ledger.StatusFailed, files[1].Status)
	assert.Contains(t, files[1].Error, "MalformedXml")

	events, err := l.Events("a.kml")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].Callsign)
	assert.Equal(t, "a_2.cot", events[1].File)
}

func TestConvertCancelled(t *testing.T) {
	in := t.TempDir()
	writeInput(t, in, "a.kml", goodKML)
	writeInput(t, in, "c.kml", goodKML)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, out := testDriver(t)
	res, err := d.Convert(ctx, []string{in})
	require.NoError(t, err)
	require.Len(t, res, 2)
	for _, r := range res {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.NoFileExists(t, filepath.Join(out, "a_1.cot"))
}

func TestConvertInvalidConfig(t *testing.T) {
	in := t.TempDir()
	fn := writeInput(t, in, "a.kml", goodKML)

	d, out := testDriver(t)
	d.Config.Workers = 0
	_, err := d.Convert(context.Background(), []string{fn})
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)

	d, out = testDriver(t)
	d.Config.Colours.Stroke = "not-a-colour"
	_, err = d.Convert(context.Background(), []string{fn})
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
	assert.NoDirExists(t, out)
}

func TestDiscover(t *testing.T) {
	in := t.TempDir()
	a := writeInput(t, in, "a.kml", goodKML)
	writeInput(t, in, "deep/b.kmz", "PK")
	writeInput(t, in, "notes.txt", "x")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "dir.kml"), 0o755))

	inputs, err := Discover([]string{in, a}, "**/*.{kml,kmz}")
	require.NoError(t, err)
	var sources []string
	for _, i := range inputs {
		sources = append(sources, i.Source)
	}
	assert.Equal(t, []string{"a.kml", "deep/b.kmz"}, sources)

	_, err = Discover([]string{filepath.Join(in, "missing.kml")}, "*.kml")
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<kml><Document>`)
	for i := 0; i < 5; i++ {
		b.WriteString(`<Placemark><name>p</name><Point><coordinates>1,1</coordinates></Point></Placemark>`)
	}
	b.WriteString(`</Document></kml>`)
	in := t.TempDir()
	fn := writeInput(t, in, "big.kml", b.String())

	d, out := testDriver(t)
	d.Config.MaxPerFile = 2
	res, err := d.Split(context.Background(), []string{fn})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.NoError(t, res[0].Err)
	assert.Equal(t, []string{
		filepath.Join(out, "big.1.kml"),
		filepath.Join(out, "big.2.kml"),
		filepath.Join(out, "big.3.kml"),
	}, res[0].Outputs)

	doc, _, err := d.Parse(Input{Path: res[0].Outputs[2], Source: "big.3.kml"})
	require.NoError(t, err)
	assert.Len(t, doc.Placemarks, 1)

	d.Config.MaxPerFile = 0
	_, err = d.Split(context.Background(), []string{fn})
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestWriteFileAtomic(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "x.cot")
	require.NoError(t, writeFileAtomic(fn, []byte("one"), 0o644))
	require.NoError(t, writeFileAtomic(fn, []byte("two"), 0o644))
	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	left, err := filepath.Glob(filepath.Join(filepath.Dir(fn), TempFilePrefix+"*"))
	require.NoError(t, err)
	assert.Empty(t, left)
}
