// Package filestore keeps uploaded files on the local disk, under the configured media directory.
package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/karemsaeed20020/Education-Platform-sub002/core"
)

var (
	ErrNotFound   = core.NewNotFoundError("file not found")
	ErrInvalidKey = errors.New("invalid file key")
)

type DiskStore struct {
	root string
}

var _ core.FileStore = (*DiskStore)(nil)

func NewDiskStore(conf *core.Config) (*DiskStore, error) {
	root, err := filepath.Abs(conf.Media.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving media dir")
	}
	if err = os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media dir")
	}
	return &DiskStore{root: root}, nil
}

// path maps a slash separated key inside the root; keys escaping it are rejected.
func (st *DiskStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(st.root, clean), nil
}

// Save writes r under key through a temp file, so readers never see a partial file.
func (st *DiskStore) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	p, err := st.path(key)
	if err != nil {
		return 0, err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return 0, errors.Wrap(err, "creating directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return 0, errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	n, err := io.Copy(tmp, readerWithContext{ctx: ctx, r: r})
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return 0, errors.Wrap(err, "writing file")
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return 0, errors.Wrap(err, "moving file")
	}
	return n, nil
}

func (st *DiskStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := st.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

// Delete removes the file; a missing file is not an error.
func (st *DiskStore) Delete(_ context.Context, key string) error {
	p, err := st.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}

// readerWithContext stops a copy once the request is cancelled.
type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (rc readerWithContext) Read(p []byte) (int, error) {
	if err := rc.ctx.Err(); err != nil {
		return 0, err
	}
	return rc.r.Read(p)
}
