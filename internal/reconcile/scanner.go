// Package reconcile walks a screenshot directory tree and drives it through
// classification, persistence and validation as one reported run.
package reconcile

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// imageExtensions are the file types a scan picks up. Everything else in the
// tree is ignored silently.
var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Item is one screenshot file found under the scan root.
type Item struct {
	// RelPath is slash-separated and relative to the root; its first
	// segment is the competitor folder.
	RelPath  string
	AbsPath  string
	FileName string
	Size     int64
	MimeType string
}

// CompetitorLabel returns the top-level folder the file sits under.
func (it Item) CompetitorLabel() string {
	if i := strings.IndexByte(it.RelPath, '/'); i > 0 {
		return it.RelPath[:i]
	}
	return ""
}

// Scan walks root and returns every image file in deterministic (lexical)
// order. Dot files and dot directories are skipped, as are files sitting
// directly in the root with no competitor folder.
func Scan(root string) ([]Item, error) {
	var items []Item
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		mime, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.Contains(rel, "/") {
			zap.L().Debug("skipping file outside competitor folder", zap.String("file", rel))
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		items = append(items, Item{
			RelPath:  rel,
			AbsPath:  path,
			FileName: name,
			Size:     info.Size(),
			MimeType: mime,
		})
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scan: walk %s", root)
	}
	return items, nil
}
