package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
	"github.com/dmitrijs2005/hotspotkeeper/internal/filex"
)

const fileExt = ".json"

// FileRepository keeps each request in <dir>/<username>.json.
type FileRepository struct {
	dir string
}

// NewFileRepository creates dir when missing.
func NewFileRepository(dir string) (*FileRepository, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("pending dir: %w", err)
	}
	return &FileRepository{dir: abs}, nil
}

// Dir returns the absolute directory backing the repository.
func (r *FileRepository) Dir() string { return r.dir }

func (r *FileRepository) path(username string) (string, error) {
	if err := ValidateUsername(username); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, username+fileExt), nil
}

func (r *FileRepository) Get(ctx context.Context, username string) (*Request, error) {
	p, err := r.path(username)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	if req.Username == "" {
		req.Username = username
	}
	return &req, nil
}

func (r *FileRepository) Save(ctx context.Context, req *Request) error {
	p, err := r.path(req.Username)
	if err != nil {
		return err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := filex.WriteFileAtomic(p, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, username string) error {
	p, err := r.path(username)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

// List skips files that do not decode; a single corrupt record must not
// hide the rest of the queue.
func (r *FileRepository) List(ctx context.Context) ([]Request, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", r.dir, err)
	}

	var out []Request
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		req, err := r.Get(ctx, strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		out = append(out, *req)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
