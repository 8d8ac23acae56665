package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lukelai18/ECommerce-API/internal/idgen"
)

const dirFilePrefix = "shop-"

// DirDestination keeps timestamped copies of the export in a local
// directory, pruning the oldest beyond keep.
type DirDestination struct {
	dir  string
	keep int // 0 keeps everything
	now  func() time.Time
}

// NewDirDestination creates a directory destination. keep bounds how many
// exports are retained; 0 disables pruning.
func NewDirDestination(dir string, keep int) *DirDestination {
	return &DirDestination{dir: dir, keep: keep, now: time.Now}
}

func (d *DirDestination) Name() string {
	return "dir:" + d.dir
}

// Write stores data as shop-<timestamp>-<id>.jsonl. The file appears
// atomically.
func (d *DirDestination) Write(_ context.Context, data []byte) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	id, err := idgen.New(idgen.BackupPrefix)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s%s-%s.jsonl", dirFilePrefix, d.now().UTC().Format("20060102T150405Z"), id)

	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, name)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return d.prune()
}

// Files lists retained exports, oldest first.
func (d *DirDestination) Files() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), dirFilePrefix) && strings.HasSuffix(e.Name(), ".jsonl") {
			files = append(files, e.Name())
		}
	}
	// The timestamp is fixed-width, so lexical order is chronological.
	sort.Strings(files)
	return files, nil
}

func (d *DirDestination) prune() error {
	if d.keep <= 0 {
		return nil
	}
	files, err := d.Files()
	if err != nil {
		return err
	}
	for len(files) > d.keep {
		if err := os.Remove(filepath.Join(d.dir, files[0])); err != nil {
			return fmt.Errorf("prune %s: %w", files[0], err)
		}
		files = files[1:]
	}
	return nil
}
