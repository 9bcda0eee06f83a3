package storefs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-invoice/invoice"
)

// Store keeps exported invoice artifacts on disk, one file per key plus a
// JSON sidecar holding its metadata.
type Store struct {
	Root    string
	BaseURL string
	Signer  Signer
	Now     func() time.Time
}

// NewStore creates a filesystem-backed artifact store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// Put stores an artifact on disk.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta invoice.ArtifactMeta) (invoice.ArtifactRef, error) {
	_ = ctx
	target, err := s.pathFor(key)
	if err != nil {
		return invoice.ArtifactRef{}, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return invoice.ArtifactRef{}, err
	}

	var size int64
	err = writeAtomic(target, ".artifact-*", func(w io.Writer) error {
		n, err := io.Copy(w, r)
		size = n
		return err
	})
	if err != nil {
		return invoice.ArtifactRef{}, err
	}

	meta.Size = size
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(target))
	}
	if meta.Filename == "" {
		meta.Filename = filepath.Base(target)
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return invoice.ArtifactRef{}, err
	}
	err = writeAtomic(metaPath(target), ".meta-*", func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	})
	if err != nil {
		return invoice.ArtifactRef{}, err
	}

	return invoice.ArtifactRef{Key: key, Meta: meta}, nil
}

// Open reads an artifact from disk. Expired artifacts are reported as missing.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, invoice.ArtifactMeta, error) {
	_ = ctx
	target, err := s.pathFor(key)
	if err != nil {
		return nil, invoice.ArtifactMeta{}, err
	}

	meta := readMeta(target)
	if !meta.ExpiresAt.IsZero() && s.now().After(meta.ExpiresAt) {
		return nil, invoice.ArtifactMeta{}, invoice.NewError(invoice.KindNotFound, fmt.Sprintf("artifact %q expired", key), nil)
	}

	file, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, invoice.ArtifactMeta{}, invoice.NewError(invoice.KindNotFound, fmt.Sprintf("artifact %q not found", key), err)
		}
		return nil, invoice.ArtifactMeta{}, err
	}

	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(target))
	}
	if meta.Size == 0 {
		if info, err := file.Stat(); err == nil {
			meta.Size = info.Size()
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = info.ModTime()
			}
		}
	}
	return file, meta, nil
}

// Delete removes an artifact and its metadata.
func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	target, err := s.pathFor(key)
	if err != nil {
		return err
	}
	_ = os.Remove(target)
	_ = os.Remove(metaPath(target))
	return nil
}

// SignedURL returns a link under BaseURL signed by Signer.
func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_ = ctx
	if s == nil {
		return "", invoice.NewError(invoice.KindInternal, "store is nil", nil)
	}
	if s.Signer == nil || s.BaseURL == "" {
		return "", invoice.NewError(invoice.KindNotImpl, "signed URLs not configured", nil)
	}
	if ttl <= 0 {
		return "", invoice.NewError(invoice.KindValidation, "signed URL TTL is required", nil)
	}
	if key == "" {
		return "", invoice.NewError(invoice.KindValidation, "artifact key is required", nil)
	}
	return s.Signer.SignURL(SignedURLInput{
		BaseURL:   strings.TrimRight(s.BaseURL, "/"),
		Key:       key,
		ExpiresAt: s.now().Add(ttl),
	})
}

func (s *Store) pathFor(key string) (string, error) {
	if s == nil {
		return "", invoice.NewError(invoice.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return "", invoice.NewError(invoice.KindValidation, "store root is required", nil)
	}
	if key == "" {
		return "", invoice.NewError(invoice.KindValidation, "artifact key is required", nil)
	}

	rel := strings.TrimPrefix(path.Clean("/"+key), "/")
	if rel == "" || rel == "." {
		return "", invoice.NewError(invoice.KindValidation, "invalid artifact key", nil)
	}
	if strings.HasSuffix(rel, metaSuffix) {
		return "", invoice.NewError(invoice.KindValidation, "artifact key is reserved", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", invoice.NewError(invoice.KindValidation, "artifact key escapes root", nil)
	}
	return target, nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

const metaSuffix = ".meta.json"

func metaPath(target string) string {
	return target + metaSuffix
}

func readMeta(target string) invoice.ArtifactMeta {
	data, err := os.ReadFile(metaPath(target))
	if err != nil {
		return invoice.ArtifactMeta{}
	}
	var meta invoice.ArtifactMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return invoice.ArtifactMeta{}
	}
	return meta
}

// writeAtomic writes through a temp file in the target directory and
// renames it into place.
func writeAtomic(target, pattern string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), pattern)
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
