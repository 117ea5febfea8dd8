// Package office decodes OOXML Word and PowerPoint payloads into the
// viewer's renderable forms: an HTML fragment for documents, a positioned
// slide deck for presentations.
package office

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
)

// Per-entry decompression ceiling. The whole payload is already capped
// before decode; this guards against a small archive inflating into
// something much larger.
const maxZipEntryBytes = 64 << 20

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		b, err := io.ReadAll(io.LimitReader(rc, maxZipEntryBytes+1))
		if err != nil {
			return nil, err
		}
		if int64(len(b)) > maxZipEntryBytes {
			return nil, fmt.Errorf("entry %s exceeds %d bytes", name, int64(maxZipEntryBytes))
		}
		return b, nil
	}
	return nil, fmt.Errorf("missing %s", name)
}

// listZipEntries returns archive paths under prefix with the given suffix,
// in archive order.
func listZipEntries(zr *zip.Reader, prefix, suffix string) []string {
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) && strings.HasSuffix(f.Name, suffix) {
			names = append(names, f.Name)
		}
	}
	return names
}

// resolveRelTarget resolves a relationship target (usually ../-relative)
// against the directory of the part that declared it.
func resolveRelTarget(partPath, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(partPath), target))
}

// relsPathFor returns the _rels part for a given part, e.g.
// ppt/slides/slide1.xml -> ppt/slides/_rels/slide1.xml.rels.
func relsPathFor(partPath string) string {
	return path.Join(path.Dir(partPath), "_rels", path.Base(partPath)+".rels")
}
