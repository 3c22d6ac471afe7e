// Package content holds the handout catalog and lesson bodies.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/stemsi/handout-viewer/internal/model"
	"gopkg.in/yaml.v3"
)

const catalogFile = "catalog.yaml"

//go:embed catalog.yaml lessons/*.md
var embedded embed.FS

// ErrInvalidCatalog is returned when catalog.yaml is malformed or inconsistent.
var ErrInvalidCatalog = errors.New("invalid lesson catalog")

// Embedded returns the catalog compiled into the binary.
func Embedded() fs.FS {
	return embedded
}

// Source returns the directory when dir is set, otherwise the embedded catalog.
func Source(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}

// LoadCatalog reads catalog.yaml and every lesson body it references.
// Lessons are returned ordered by week.
func LoadCatalog(fsys fs.FS) (*model.Catalog, error) {
	raw, err := fs.ReadFile(fsys, catalogFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", catalogFile, err)
	}

	var cat model.Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if cat.Program == "" || cat.ExamCode == "" {
		return nil, fmt.Errorf("%w: program and exam_code are required", ErrInvalidCatalog)
	}
	if len(cat.Lessons) == 0 {
		return nil, fmt.Errorf("%w: no lessons", ErrInvalidCatalog)
	}

	seen := make(map[string]bool, len(cat.Lessons))
	for i := range cat.Lessons {
		l := &cat.Lessons[i]
		if l.ID == "" || l.Title == "" || l.Week <= 0 {
			return nil, fmt.Errorf("%w: lesson %d needs id, title and week", ErrInvalidCatalog, i)
		}
		if seen[l.ID] {
			return nil, fmt.Errorf("%w: duplicate lesson id %q", ErrInvalidCatalog, l.ID)
		}
		seen[l.ID] = true

		body, err := fs.ReadFile(fsys, path.Clean(l.ContentFile))
		if err != nil {
			return nil, fmt.Errorf("read lesson %s: %w", l.ID, err)
		}
		l.Content = string(body)
		if strings.TrimSpace(l.Content) == "" {
			return nil, fmt.Errorf("%w: lesson %s has no content", ErrInvalidCatalog, l.ID)
		}
	}

	sort.SliceStable(cat.Lessons, func(i, j int) bool {
		return cat.Lessons[i].Week < cat.Lessons[j].Week
	})

	return &cat, nil
}
