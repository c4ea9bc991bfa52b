package kmlsplit

import (
	"fmt"
	"io"
	"path/filepath"

	kml "github.com/twpayne/go-kml"
	kmz "github.com/twpayne/go-kmz"

	types "github.com/stronnag/kml2cot/pkg/types"
)

// ChunkName gives "{base}.{n}.kml" (or .kmz) for chunk n, counting from 1.
func ChunkName(inp string, n int, zipped bool) string {
	outfn := filepath.Base(inp)
	ext := filepath.Ext(outfn)
	if len(ext) < len(outfn) {
		outfn = outfn[0 : len(outfn)-len(ext)]
	}
	if zipped {
		ext = ".kmz"
	} else {
		ext = ".kml"
	}
	return fmt.Sprintf("%s.%d%s", outfn, n, ext)
}

// Write renders doc to w, as a KMZ archive when zipped is set.
func Write(w io.Writer, doc *types.Document, zipped bool) error {
	d := Build(doc)
	if zipped {
		return kmz.NewKMZ(d).WriteIndent(w, "", "  ")
	}
	return kml.KML(d).WriteIndent(w, "", "  ")
}
