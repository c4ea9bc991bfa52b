// Package batch runs the per file pipelines: discovery, parsing, then CoT
// emission or splitting, with files processed in parallel.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	cotgen "github.com/stronnag/kml2cot/pkg/cotgen"
	kmlparse "github.com/stronnag/kml2cot/pkg/kmlparse"
	kmlsplit "github.com/stronnag/kml2cot/pkg/kmlsplit"
	ledger "github.com/stronnag/kml2cot/pkg/ledger"
	options "github.com/stronnag/kml2cot/pkg/options"
	types "github.com/stronnag/kml2cot/pkg/types"
)

type Driver struct {
	Config *options.Configuration
	Logger *slog.Logger
	// Ledger, when set, records every file's outcome.
	Ledger *ledger.Ledger
	// Emit adjusts the emitter options before use; tests pin the clock here.
	Emit func(*cotgen.Options)
}

type FileResult struct {
	Input      Input
	Placemarks int
	Events     []cotgen.Mapping
	Outputs    []string
	Warnings   []types.Warning
	Diag       string
	Bytes      uint64
	Err        error
}

func (r FileResult) Failed() bool {
	return r.Err != nil
}

// Failures returns the failed results, in input order.
func Failures(results []FileResult) []FileResult {
	var res []FileResult
	for _, r := range results {
		if r.Failed() {
			res = append(res, r)
		}
	}
	return res
}

func (d *Driver) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Driver) outdir() (string, error) {
	dir := d.Config.Outdir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Parse loads and parses one input.
func (d *Driver) Parse(in Input) (*types.Document, []types.Warning, error) {
	data, err := Load(in)
	if err != nil {
		return nil, nil, err
	}
	return kmlparse.Parse(data, kmlparse.Options{Source: in.Source, Force: d.Config.Force, Logger: d.log()})
}

// run applies fn to every input with at most Workers in flight. A failing
// file never stops the others; a cancelled context stops files not yet
// started. Inputs whose output names clash with an earlier input fail
// without being read.
func (d *Driver) run(ctx context.Context, inputs []Input, fn func(Input, string) FileResult) []FileResult {
	names := d.prefixes(inputs)
	results := make([]FileResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(d.Config.Workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = FileResult{Input: in, Err: err}
				return nil
			}
			if err := names[i].err; err != nil {
				r := FileResult{Input: in, Err: err}
				d.report(r)
				d.record(r, nil)
				results[i] = r
				return nil
			}
			results[i] = fn(in, names[i].prefix)
			return nil
		})
	}
	g.Wait()
	return results
}

type outputName struct {
	prefix string
	err    error
}

// prefixes gives every input the prefix its output files are named from.
// Sources whose default prefixes coincide ("a b.kml" and "a_b.kml", or
// "x.kml" and "x.kmz") are told apart by a tag derived from the source.
// A configured prefix is used as is for a single input and prepended
// otherwise. Any prefix still taken is an error for the later input.
func (d *Driver) prefixes(inputs []Input) []outputName {
	base := make([]string, len(inputs))
	count := map[string]int{}
	for i, in := range inputs {
		base[i] = cotgen.DefaultPrefix(in.Source)
		count[base[i]]++
	}
	res := make([]outputName, len(inputs))
	owner := map[string]string{}
	for i, in := range inputs {
		p := base[i]
		if count[p] > 1 {
			p += "_" + cotgen.SourceTag(in.Source)
		}
		switch {
		case d.Config.Prefix == "":
		case len(inputs) > 1:
			p = cotgen.SanitizeFilename(d.Config.Prefix) + "_" + p
		default:
			p = cotgen.SanitizeFilename(d.Config.Prefix)
		}
		if prev, ok := owner[p]; ok {
			res[i].err = fmt.Errorf("%w: prefix %q already used by %s", ErrOutputClash, p, prev)
			continue
		}
		owner[p] = in.Source
		res[i].prefix = p
	}
	return res
}

func (d *Driver) record(r FileResult, events []ledger.EventRecord) {
	if d.Ledger == nil {
		return
	}
	f := ledger.FileRecord{Source: r.Input.Source, Path: r.Input.Path, Status: ledger.StatusOK,
		Placemarks: r.Placemarks, Events: len(events), Warnings: len(r.Warnings)}
	if r.Err != nil {
		f.Status = ledger.StatusFailed
		f.Error = r.Err.Error()
	}
	if err := d.Ledger.Record(f, events, r.Warnings); err != nil {
		d.log().Error("ledger", "source", r.Input.Source, "err", err)
	}
}

func (d *Driver) report(r FileResult) {
	log := d.log()
	for _, w := range r.Warnings {
		log.Warn(w.Kind.String(), "source", w.Source, "placemark", w.Placemark, "name", w.Name, "msg", w.Message)
	}
	if r.Err != nil {
		log.Error("failed", "source", r.Input.Source, "err", r.Err)
		return
	}
	log.Info("done", "source", r.Input.Source, "placemarks", r.Placemarks, "outputs", len(r.Outputs), "warnings", len(r.Warnings))
}

// Convert writes one CoT file per placemark of every input. Configuration
// errors are returned before any file is read.
func (d *Driver) Convert(ctx context.Context, paths []string) ([]FileResult, error) {
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	copts, err := cotgen.OptionsFrom(d.Config)
	if err != nil {
		return nil, err
	}
	copts.Logger = d.log()
	if d.Emit != nil {
		d.Emit(&copts)
	}
	if _, err := cotgen.New(copts); err != nil {
		return nil, err
	}
	inputs, err := Discover(paths, d.Config.Glob)
	if err != nil {
		return nil, err
	}
	dir, err := d.outdir()
	if err != nil {
		return nil, err
	}
	return d.run(ctx, inputs, func(in Input, prefix string) FileResult {
		o := copts
		o.Prefix = prefix
		return d.convertFile(in, dir, o)
	}), nil
}

func (d *Driver) convertFile(in Input, dir string, o cotgen.Options) (r FileResult) {
	r.Input = in
	var events []ledger.EventRecord
	defer func() {
		d.report(r)
		d.record(r, events)
	}()

	doc, warns, err := d.Parse(in)
	if err != nil {
		r.Err = err
		return
	}
	r.Warnings = warns
	r.Placemarks = len(doc.Placemarks)

	e, err := cotgen.New(o)
	if err != nil {
		r.Err = err
		return
	}
	diag := cotgen.Diagnostic{Source: in.Source, Document: doc.Name, Warnings: warns}
	for _, pm := range doc.Placemarks {
		res, err := e.Emit(in.Source, pm)
		if err != nil {
			r.Err = fmt.Errorf("placemark %d: %w", pm.Index, err)
			return
		}
		fn := filepath.Join(dir, res.Filename)
		if err := writeFileAtomic(fn, res.Bytes, 0o644); err != nil {
			r.Err = err
			return
		}
		r.Outputs = append(r.Outputs, fn)
		r.Bytes += uint64(len(res.Bytes))
		r.Events = append(r.Events, res.Mapping)
		events = append(events, ledger.EventRecord{Index: pm.Index, UID: res.Event.UID, Type: res.Event.Type,
			Callsign: res.Event.Detail.Contact.Callsign, File: res.Filename})
	}

	if d.Config.Debug {
		diag.Events = r.Events
		var buf bytes.Buffer
		if err := diag.Encode(&buf); err != nil {
			r.Err = err
			return
		}
		r.Diag = filepath.Join(dir, cotgen.DiagName(o.Prefix))
		if err := writeFileAtomic(r.Diag, buf.Bytes(), 0o644); err != nil {
			r.Err = err
		}
	}
	return
}

// Split writes each input as chunks of at most MaxPerFile placemarks.
func (d *Driver) Split(ctx context.Context, paths []string) ([]FileResult, error) {
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	sopts := kmlsplit.Options{MaxPerFile: d.Config.MaxPerFile, ByFolder: d.Config.ByFolder, KMZ: d.Config.Kmz}
	if _, err := kmlsplit.Split(&types.Document{}, sopts); err != nil {
		return nil, err
	}
	inputs, err := Discover(paths, d.Config.Glob)
	if err != nil {
		return nil, err
	}
	dir, err := d.outdir()
	if err != nil {
		return nil, err
	}
	return d.run(ctx, inputs, func(in Input, prefix string) FileResult {
		return d.splitFile(in, dir, prefix, sopts)
	}), nil
}

func (d *Driver) splitFile(in Input, dir, prefix string, sopts kmlsplit.Options) (r FileResult) {
	r.Input = in
	defer func() {
		d.report(r)
		d.record(r, nil)
	}()

	doc, warns, err := d.Parse(in)
	if err != nil {
		r.Err = err
		return
	}
	r.Warnings = warns
	r.Placemarks = len(doc.Placemarks)

	chunks, err := kmlsplit.Split(doc, sopts)
	if err != nil {
		r.Err = err
		return
	}
	for i, c := range chunks {
		var buf bytes.Buffer
		if err := kmlsplit.Write(&buf, c, sopts.KMZ); err != nil {
			r.Err = err
			return
		}
		fn := filepath.Join(dir, kmlsplit.ChunkName(prefix+".kml", i+1, sopts.KMZ))
		if err := writeFileAtomic(fn, buf.Bytes(), 0o644); err != nil {
			r.Err = err
			return
		}
		r.Outputs = append(r.Outputs, fn)
		r.Bytes += uint64(buf.Len())
	}
	return
}

var (
	// ErrFilesFailed reports that at least one input failed.
	ErrFilesFailed = errors.New("one or more files failed")
	// ErrOutputClash marks an input whose output names another input
	// already owns.
	ErrOutputClash = errors.New("output name clash")
)
