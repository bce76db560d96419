// Package fs stores blobs as files below a root directory. Every blob file
// has a JSON sidecar next to it carrying the content type, user metadata
// and a sha256 checksum. Files placed under the root by hand are served
// without one.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"maps"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"pathwaycore/internal/blob/core"
)

const (
	// DefaultRoot is used when no directory is configured.
	DefaultRoot   = "./blobdata"
	sidecarSuffix = ".meta"
	tempPrefix    = ".tmp-"
)

// Store implements core.Store on a directory. All file access goes through
// an os.Root so keys cannot leave it.
type Store struct {
	dir  string
	root *os.Root
}

// New opens dir, creating it when missing.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultRoot
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", dir, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open blob root %s: %w", dir, err)
	}
	return &Store{dir: dir, root: root}, nil
}

// Dir is the directory blobs are stored under.
func (s *Store) Dir() string { return s.dir }

// Close releases the root directory handle.
func (s *Store) Close() error { return s.root.Close() }

// Driver implements core.Store.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// cleanKey turns a key into a slash separated path relative to the root.
func cleanKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return "", errors.New("blob key required")
	}
	if strings.HasPrefix(k, "/") || strings.Contains(k, `\`) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	k = path.Clean(k)
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", fmt.Errorf("blob key %q escapes the store", key)
	}
	if strings.HasSuffix(k, sidecarSuffix) || strings.HasPrefix(path.Base(k), tempPrefix) {
		return "", fmt.Errorf("blob key %q uses a reserved name", key)
	}
	return k, nil
}

type sidecar struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	SHA256      string            `json:"sha256"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (sc sidecar) info(key string) core.Info {
	return core.Info{
		Key:          key,
		Size:         sc.Size,
		ContentType:  sc.ContentType,
		ETag:         sc.SHA256,
		Metadata:     maps.Clone(sc.Metadata),
		LastModified: sc.UpdatedAt,
	}
}

func (s *Store) readSidecar(key string) (sidecar, error) {
	b, err := s.root.ReadFile(key + sidecarSuffix)
	if err != nil {
		return sidecar{}, err
	}
	var sc sidecar
	if err := json.Unmarshal(b, &sc); err != nil {
		return sidecar{}, fmt.Errorf("decode sidecar of %s: %w", key, err)
	}
	return sc, nil
}

// Put implements core.Store. Content is written to a temporary file and
// renamed into place, so readers never see a partial blob.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	k, err := cleanKey(key)
	if err != nil {
		return core.Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Info{}, err
	}
	now := time.Now().UTC()
	created := now
	if prev, err := s.readSidecar(k); err == nil {
		if !opts.Overwrite {
			return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrExists)
		}
		created = prev.CreatedAt
	} else if _, statErr := s.root.Stat(k); statErr == nil && !opts.Overwrite {
		return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrExists)
	}
	if dir := path.Dir(k); dir != "." {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return core.Info{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	tmp := path.Join(path.Dir(k), tempPrefix+uuid.NewString())
	sum, size, err := s.writeTemp(tmp, r)
	defer func() { _ = s.root.Remove(tmp) }()
	if err != nil {
		return core.Info{}, fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := s.root.Rename(tmp, k); err != nil {
		return core.Info{}, fmt.Errorf("commit blob %s: %w", key, err)
	}

	sc := sidecar{
		ContentType: opts.ContentType,
		Metadata:    maps.Clone(opts.Metadata),
		SHA256:      sum,
		Size:        size,
		CreatedAt:   created,
		UpdatedAt:   now,
	}
	b, err := json.Marshal(sc)
	if err != nil {
		return core.Info{}, err
	}
	if err := s.root.WriteFile(k+sidecarSuffix, b, 0o644); err != nil {
		return core.Info{}, fmt.Errorf("write sidecar of %s: %w", key, err)
	}
	return sc.info(k), nil
}

func (s *Store) writeTemp(name string, r io.Reader) (string, int64, error) {
	f, err := s.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, err
	}
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, h), r)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// Get implements core.Store.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return core.Info{}, nil, err
	}
	f, err := s.root.Open(k)
	if errors.Is(err, iofs.ErrNotExist) {
		return core.Info{}, nil, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return core.Info{}, nil, err
	}
	info, err := s.describe(k, f)
	if err != nil {
		_ = f.Close()
		return core.Info{}, nil, err
	}
	return info, f, nil
}

// describe reads the sidecar of k, falling back to the file's own stat.
func (s *Store) describe(k string, f *os.File) (core.Info, error) {
	sc, err := s.readSidecar(k)
	if err == nil {
		return sc.info(k), nil
	}
	if !errors.Is(err, iofs.ErrNotExist) {
		return core.Info{}, err
	}
	st, err := f.Stat()
	if err != nil {
		return core.Info{}, err
	}
	if st.IsDir() {
		return core.Info{}, fmt.Errorf("blob %s: %w", k, core.ErrNotFound)
	}
	return core.Info{Key: k, Size: st.Size(), LastModified: st.ModTime().UTC()}, nil
}

// Head implements core.Store.
func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	info, rc, err := s.Get(ctx, key)
	if err != nil {
		return core.Info{}, err
	}
	_ = rc.Close()
	return info, nil
}

// Delete implements core.Store.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	k, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.root.Remove(k); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("delete blob %s: %w", key, err)
	}
	if err := s.root.Remove(k + sidecarSuffix); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return true, fmt.Errorf("delete sidecar of %s: %w", key, err)
	}
	return true, nil
}

// List implements core.Store. Sidecars and in-flight temporary files are skipped.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := iofs.WalkDir(s.root.FS(), ".", func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, sidecarSuffix) || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		if !strings.HasPrefix(p, prefix) {
			return nil
		}
		info, err := s.Head(ctx, p)
		if err != nil {
			return err
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(infos, func(a, b core.Info) int { return strings.Compare(a.Key, b.Key) })
	return infos, nil
}
