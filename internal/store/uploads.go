package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadsPath is the URL prefix the uploads directory is served under.
const UploadsPath = "/uploads/"

// MaxDownload caps files fetched from the editing service callback.
const MaxDownload = 50 << 20

// ErrTooLarge is returned when a downloaded file exceeds the cap. Nothing is
// written in that case.
var ErrTooLarge = errors.New("store: download too large")

var whitespace = regexp.MustCompile(`\s+`)

// CleanName reduces a client supplied file name to its base name with
// whitespace runs turned into underscores.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return whitespace.ReplaceAllString(name, "_")
}

// UploadName builds the stored file name <unixmillis>_<uuid>_<name>.
func UploadName(name string, now time.Time) string {
	return fmt.Sprintf("%d_%s_%s", now.UnixMilli(), uuid.NewString(), CleanName(name))
}

// Uploads is the public uploads directory.
type Uploads struct {
	Dir      string
	BaseURL  string
	Client   *http.Client
	// MaxBytes caps Download. Zero means MaxDownload.
	MaxBytes int64
}

func (u *Uploads) target(name string) (string, error) {
	clean := CleanName(name)
	if clean == "" {
		return "", errors.New("uploads: empty file name")
	}
	return filepath.Join(u.Dir, clean), nil
}

// Write stores data under name, creating the directory when needed.
func (u *Uploads) Write(name string, data []byte) error {
	p, err := u.target(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	return nil
}

// Save writes data under a fresh upload name and returns that name.
func (u *Uploads) Save(name string, data []byte) (string, error) {
	stored := UploadName(name, time.Now())
	if err := u.Write(stored, data); err != nil {
		return "", err
	}
	return stored, nil
}

// PublicURL is the address a stored file can be fetched from: the
// configured base URL, else the request origin, else a relative path.
func (u *Uploads) PublicURL(name, origin string) string {
	rel := UploadsPath + CleanName(name)
	switch {
	case u.BaseURL != "":
		return strings.TrimRight(u.BaseURL, "/") + rel
	case origin != "":
		return strings.TrimRight(origin, "/") + rel
	}
	return rel
}

// Download fetches url and stores the body under name.
func (u *Uploads) Download(ctx context.Context, url, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	client := u.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download: unexpected status %s", resp.Status)
	}
	limit := u.MaxBytes
	if limit <= 0 {
		limit = MaxDownload
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if int64(len(data)) > limit {
		return fmt.Errorf("download: %w (over %d bytes)", ErrTooLarge, limit)
	}
	return u.Write(name, data)
}
