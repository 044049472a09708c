package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	a, err := m.Save(ctx, "report.docx", []byte("first"), "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Save(ctx, "thesis.docx", []byte("second!"), "http://x/uploads/thesis.docx")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Fatal("ids must differ")
	}

	meta, data, err := m.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second!" || meta.Size != 7 || meta.Name != "thesis.docx" {
		t.Errorf("Get = %+v %q", meta, data)
	}

	list, err := m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, rec := range list {
		names = append(names, rec.Name)
	}
	if diff := cmp.Diff([]string{"thesis.docx", "report.docx"}, names); diff != "" {
		t.Errorf("List order (-want +got):\n%s", diff)
	}

	if _, _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreCopiesBytes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	rec, _ := m.Save(ctx, "a.docx", buf, "")
	buf[0] = 'z'
	_, got, _ := m.Get(ctx, rec.ID)
	if string(got) != "abc" {
		t.Errorf("stored bytes changed: %q", got)
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"my report.docx", "my_report.docx"},
		{"  a \t b.pdf ", "a_b.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\kim\lab report.docx`, "lab_report.docx"},
		{"..", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanName(tt.in); got != tt.want {
			t.Errorf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUploadName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	got := UploadName("lab report.docx", now)
	re := regexp.MustCompile(`^1700000000123_[0-9a-f-]{36}_lab_report\.docx$`)
	if !re.MatchString(got) {
		t.Errorf("UploadName = %q", got)
	}
}

func TestPublicURL(t *testing.T) {
	u := &Uploads{}
	if got := u.PublicURL("a.docx", ""); got != "/uploads/a.docx" {
		t.Errorf("relative = %q", got)
	}
	if got := u.PublicURL("a.docx", "http://localhost:3000/"); got != "http://localhost:3000/uploads/a.docx" {
		t.Errorf("origin = %q", got)
	}
	u.BaseURL = "https://files.example.com/"
	if got := u.PublicURL("a.docx", "http://localhost:3000"); got != "https://files.example.com/uploads/a.docx" {
		t.Errorf("base = %q", got)
	}
}

func TestUploadsSaveAndDownload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u := &Uploads{Dir: dir}

	name, err := u.Save("my file.docx", []byte("docx bytes"))
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil || string(data) != "docx bytes" {
		t.Fatalf("read back = %q, %v", data, err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("edited"))
	}))
	defer srv.Close()

	ctx := context.Background()
	if err := u.Download(ctx, srv.URL+"/doc", "../out.docx"); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(filepath.Join(dir, "out.docx"))
	if err != nil || string(data) != "edited" {
		t.Errorf("downloaded = %q, %v", data, err)
	}
	if err := u.Download(ctx, srv.URL+"/missing", "x.docx"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestDownloadOverLimit(t *testing.T) {
	dir := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	u := &Uploads{Dir: dir, MaxBytes: 9}
	err := u.Download(context.Background(), srv.URL, "big.docx")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "big.docx")); !os.IsNotExist(err) {
		t.Errorf("truncated file written: %v", err)
	}

	u.MaxBytes = 10
	if err := u.Download(context.Background(), srv.URL, "fits.docx"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "fits.docx"))
	if err != nil || string(data) != "0123456789" {
		t.Errorf("downloaded = %q, %v", data, err)
	}
}
