package permission

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"geosnap/internal/prompt"
)

// grantsFile is the on-disk shape of the file backend.
type grantsFile struct {
	Grants map[string]Result `yaml:"grants"`
}

// FileBackend keeps grants in a YAML file so the CLI behaves like a device:
// an undecided permission prompts once, a second refusal blocks it, and a
// blocked permission can only be changed by editing the file (the
// "settings" the deep link opens).
type FileBackend struct {
	mu       sync.Mutex
	path     string
	prompter prompt.Prompter
}

func NewFileBackend(path string, p prompt.Prompter) *FileBackend {
	return &FileBackend{path: path, prompter: p}
}

func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Check(ctx context.Context, id string) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, err := b.load()
	if err != nil {
		return "", err
	}
	res, ok := g.Grants[id]
	if !ok {
		return ResultDenied, nil
	}
	return res, nil
}

func (b *FileBackend) Request(ctx context.Context, id string) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, err := b.load()
	if err != nil {
		return "", err
	}

	prev, decided := g.Grants[id]
	switch prev {
	case ResultGranted, ResultBlocked, ResultUnavailable:
		return prev, nil
	}

	next := ResultDenied
	if b.prompter.Confirm(ctx, "Permission Request", "geosnap would like to use "+id, "Allow") {
		next = ResultGranted
	} else if decided && prev == ResultDenied {
		next = ResultBlocked
	}

	g.Grants[id] = next
	if err := b.save(g); err != nil {
		return "", err
	}
	return next, nil
}

func (b *FileBackend) load() (grantsFile, error) {
	g := grantsFile{Grants: map[string]Result{}}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return g, nil
	}
	if err != nil {
		return g, fmt.Errorf("read grants: %w", err)
	}
	if err := yaml.Unmarshal(data, &g); err != nil {
		return g, fmt.Errorf("parse grants %s: %w", b.path, err)
	}
	if g.Grants == nil {
		g.Grants = map[string]Result{}
	}
	return g, nil
}

func (b *FileBackend) save(g grantsFile) error {
	data, err := yaml.Marshal(g)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}
