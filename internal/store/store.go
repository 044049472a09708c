// Package store keeps uploaded DOCX templates and the public uploads folder.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("store: template not found")

// Template is the metadata of an uploaded template. The file bytes are
// returned separately by Get.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	PublicURL string    `json:"publicUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists uploaded templates.
type Store interface {
	Save(ctx context.Context, name string, data []byte, publicURL string) (Template, error)
	Get(ctx context.Context, id string) (Template, []byte, error)
	List(ctx context.Context) ([]Template, error)
	Close()
}

type memRecord struct {
	meta Template
	data []byte
}

// Memory is a process-local Store.
type Memory struct {
	mu   sync.RWMutex
	recs map[string]memRecord
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{recs: map[string]memRecord{}, now: time.Now}
}

func (m *Memory) Save(ctx context.Context, name string, data []byte, publicURL string) (Template, error) {
	t := Template{
		ID:        uuid.NewString(),
		Name:      name,
		Size:      len(data),
		PublicURL: publicURL,
		CreatedAt: m.now().UTC(),
	}
	m.mu.Lock()
	m.recs[t.ID] = memRecord{meta: t, data: append([]byte(nil), data...)}
	m.mu.Unlock()
	return t, nil
}

func (m *Memory) Get(ctx context.Context, id string) (Template, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recs[id]
	if !ok {
		return Template{}, nil, ErrNotFound
	}
	return r.meta, append([]byte(nil), r.data...), nil
}

// List returns templates newest first.
func (m *Memory) List(ctx context.Context) ([]Template, error) {
	m.mu.RLock()
	out := make([]Template, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r.meta)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Close() {}
