package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// PublicPrefix is the URL path the local disk is served under.
const PublicPrefix = "/images"

type LocalDisk struct {
	root string
}

// NewLocalDisk stores files in root, made absolute against the working
// directory.
func NewLocalDisk(root string) *LocalDisk {
	if !filepath.IsAbs(root) {
		cwd, _ := os.Getwd()
		root = filepath.Join(cwd, root)
	}
	return &LocalDisk{root: root}
}

func (d *LocalDisk) Name() string { return "local" }

func (d *LocalDisk) Root() string { return d.root }

func (d *LocalDisk) Put(_ context.Context, name string, data []byte, _ string) (Object, error) {
	name = path.Base("/" + name)
	if name == "/" || name == "." {
		return Object{}, fmt.Errorf("storage/local: invalid name")
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return Object{}, fmt.Errorf("storage/local: mkdir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.root, name), data, 0o644); err != nil {
		return Object{}, fmt.Errorf("storage/local: write %s: %w", name, err)
	}
	return Object{Name: name, URL: PublicPrefix + "/" + name}, nil
}

// List returns the stored files, skipping dotfiles. A directory that was
// never created lists as empty.
func (d *LocalDisk) List(_ context.Context) ([]Object, error) {
	entries, err := os.ReadDir(d.root)
	if os.IsNotExist(err) {
		return []Object{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage/local: read %s: %w", d.root, err)
	}

	out := make([]Object, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, Object{Name: e.Name(), URL: PublicPrefix + "/" + e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
