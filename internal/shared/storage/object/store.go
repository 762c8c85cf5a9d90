package object

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"docflow-backend/internal/shared/util"
)

var (
	// ErrNotFound is returned when a storage key does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that are absolute or escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// SavedObject describes bytes accepted by a store.
type SavedObject struct {
	Key      string
	Size     int64
	MIMEType string
	// SHA256 is the lowercase hex digest of exactly the bytes written.
	SHA256 string
}

// ObjectStore keeps document bytes. Keys are opaque to callers.
type ObjectStore interface {
	Save(ctx context.Context, owner, fileName string, r io.Reader) (SavedObject, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds "<owner digest>/<uuid>_<file name>" so uploads of the same
// name never collide and owner ids never appear in paths.
func NewKey(owner, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.HashUserKey(owner), uuid.NewString()+"_"+name), nil
}

// CleanKey normalizes key and rejects traversal.
func CleanKey(key string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if clean == "." || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}

const sniffLen = 512

// Ingest streams an upload while sniffing its MIME type and accumulating the
// SHA-256 digest and byte count.
type Ingest struct {
	r        io.Reader
	h        hash.Hash
	n        int64
	MIMEType string
}

// NewIngest reads up to 512 bytes ahead to detect the content type.
func NewIngest(r io.Reader) (*Ingest, error) {
	var sniff [sniffLen]byte
	n, err := io.ReadFull(r, sniff[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head := append([]byte(nil), sniff[:n]...)
	return &Ingest{
		r:        io.MultiReader(bytes.NewReader(head), r),
		h:        sha256.New(),
		MIMEType: http.DetectContentType(head),
	}, nil
}

func (i *Ingest) Read(p []byte) (int, error) {
	n, err := i.r.Read(p)
	if n > 0 {
		i.h.Write(p[:n])
		i.n += int64(n)
	}
	return n, err
}

// Result reports what has been read so far under key.
func (i *Ingest) Result(key string) SavedObject {
	return SavedObject{Key: key, Size: i.n, MIMEType: i.MIMEType, SHA256: hex.EncodeToString(i.h.Sum(nil))}
}
