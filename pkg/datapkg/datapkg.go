// Package datapkg lays converted CoT files out as a TAK data package: one
// directory per event uid plus MANIFEST/manifest.xml, optionally zipped.
package datapkg

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	cotgen "github.com/stronnag/kml2cot/pkg/cotgen"
	types "github.com/stronnag/kml2cot/pkg/types"
)

type Options struct {
	Name   string
	OutDir string
	Zip    bool
	Logger *slog.Logger
}

// Collect expands directories to the .cot files below them. Plain files
// are kept as given.
func Collect(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(p), "**/*.cot")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			files = append(files, filepath.Join(p, filepath.FromSlash(m)))
		}
	}
	return files, nil
}

// PackageUID is the stable uid of a package name.
func PackageUID(name string) string {
	return uuid.NewSHA1(cotgen.Namespace, []byte("package\x00"+name)).String()
}

type entry struct {
	name string
	data []byte
}

// Build copies each CoT file into {OutDir}/{uid}/ and writes the manifest.
// Contents are sorted by zip entry.
func Build(files []string, opts Options) (*Manifest, error) {
	if opts.Name == "" {
		return nil, types.ConfigError("package name must not be empty")
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	m := &Manifest{
		Version: ManifestVersion,
		Configuration: []Parameter{
			{Name: "uid", Value: PackageUID(opts.Name)},
			{Name: "name", Value: opts.Name},
		},
		Dir: opts.OutDir,
	}
	var entries []entry
	seen := map[string]bool{}
	for _, fn := range files {
		data, err := os.ReadFile(fn)
		if err != nil {
			return nil, err
		}
		ev, err := cotgen.ReadEvent(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		zipEntry := path.Join(ev.UID, filepath.Base(fn))
		if seen[zipEntry] {
			log.Warn("duplicate package entry", "file", fn, "entry", zipEntry)
			continue
		}
		seen[zipEntry] = true

		sum := sha256.Sum256(data)
		m.Contents = append(m.Contents, Content{
			ZipEntry: zipEntry,
			Parameters: []Parameter{
				{Name: "uid", Value: ev.UID},
				{Name: "name", Value: ev.Detail.Contact.Callsign},
				{Name: "contentType", Value: CotContentType},
				{Name: "size", Value: strconv.Itoa(len(data))},
				{Name: "sha256", Value: hex.EncodeToString(sum[:])},
			},
		})
		entries = append(entries, entry{zipEntry, data})
		m.Size += int64(len(data))
	}
	sort.Slice(m.Contents, func(i, j int) bool { return m.Contents[i].ZipEntry < m.Contents[j].ZipEntry })
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	for _, e := range entries {
		if err := writeFile(opts.OutDir, e.name, e.data); err != nil {
			return nil, err
		}
	}
	mdata, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	mentry := path.Join(ManifestDir, ManifestFile)
	if err := writeFile(opts.OutDir, mentry, mdata); err != nil {
		return nil, err
	}
	log.Debug("package manifest", "name", opts.Name, "contents", len(m.Contents))

	if opts.Zip {
		m.Zip = filepath.Join(opts.OutDir, opts.Name+".zip")
		all := append([]entry{{mentry, mdata}}, entries...)
		if err := writeZip(m.Zip, all); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func writeFile(dir, name string, data []byte) error {
	fn := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		return err
	}
	return os.WriteFile(fn, data, 0o644)
}

func writeZip(fn string, entries []entry) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate})
		if err == nil {
			_, err = w.Write(e.data)
		}
		if err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", fn, err)
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Entries lists the names stored in a package archive.
func Entries(fn string) ([]string, error) {
	zr, err := zip.OpenReader(fn)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}
