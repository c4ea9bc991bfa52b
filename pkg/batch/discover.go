package batch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	types "github.com/stronnag/kml2cot/pkg/types"
)

// Input is one file to process. Source is its stable identity: the base
// name for a file named directly, the slash separated path below the
// directory it was found in otherwise. Sources that would still coincide
// fall back to the cleaned path as given.
type Input struct {
	Path   string
	Source string
}

// Discover expands the command line paths. Directories are matched with
// glob; results are sorted and duplicates dropped.
func Discover(paths []string, glob string) ([]Input, error) {
	var inputs []Input
	seen := map[string]bool{}
	add := func(in Input) {
		key := filepath.Clean(in.Path)
		if abs, err := filepath.Abs(key); err == nil {
			key = abs
		}
		if !seen[key] {
			seen[key] = true
			inputs = append(inputs, in)
		}
	}
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			add(Input{Path: p, Source: filepath.Base(p)})
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(p), glob)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			fn := filepath.Join(p, filepath.FromSlash(m))
			if st, err := os.Stat(fn); err == nil && st.IsDir() {
				continue
			}
			add(Input{Path: fn, Source: m})
		}
	}
	uniqueSources(inputs)
	return inputs, nil
}

func uniqueSources(inputs []Input) {
	count := map[string]int{}
	for _, in := range inputs {
		count[in.Source]++
	}
	for i, in := range inputs {
		if count[in.Source] > 1 {
			inputs[i].Source = pathSource(in.Path)
		}
	}
}

// pathSource is the slash form of a cleaned path, without a leading root.
func pathSource(p string) string {
	p = filepath.ToSlash(filepath.Clean(p))
	if v := filepath.VolumeName(p); v != "" {
		p = p[len(v):]
	}
	return strings.TrimLeft(p, "/")
}

// Load reads an input, unwrapping the KML document from a KMZ archive.
func Load(in Input) ([]byte, error) {
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, err
	}
	sig := data
	if len(sig) > 512 {
		sig = sig[:512]
	}
	if types.EvinceType(sig) == types.IS_KMZ {
		return unwrapKMZ(data)
	}
	return data, nil
}

// unwrapKMZ returns doc.kml, or failing that the first .kml entry.
func unwrapKMZ(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("kmz: %w", err)
	}
	var pick *zip.File
	for _, f := range zr.File {
		if !strings.EqualFold(path.Ext(f.Name), ".kml") {
			continue
		}
		if strings.EqualFold(f.Name, "doc.kml") {
			pick = f
			break
		}
		if pick == nil {
			pick = f
		}
	}
	if pick == nil {
		return nil, fmt.Errorf("kmz: no .kml entry")
	}
	rc, err := pick.Open()
	if err != nil {
		return nil, fmt.Errorf("kmz %s: %w", pick.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
