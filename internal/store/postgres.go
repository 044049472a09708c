package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS templates (
    id         UUID PRIMARY KEY,
    name       TEXT NOT NULL,
    buffer     BYTEA NOT NULL,
    public_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres stores templates in a single table.
type Postgres struct {
	DB *pgxpool.Pool
}

// NewPostgres connects and makes sure the templates table exists.
func NewPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if _, err := db.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create templates table: %w", err)
	}
	return &Postgres{DB: db}, nil
}

func (p *Postgres) Save(ctx context.Context, name string, data []byte, publicURL string) (Template, error) {
	t := Template{ID: uuid.NewString(), Name: name, Size: len(data), PublicURL: publicURL}
	err := p.DB.QueryRow(ctx, `
        INSERT INTO templates (id, name, buffer, public_url)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at;
        `, t.ID, name, data, publicURL).Scan(&t.CreatedAt)
	if err != nil {
		return Template{}, fmt.Errorf("insert template: %w", err)
	}
	return t, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (Template, []byte, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Template{}, nil, ErrNotFound
	}
	var t Template
	var data []byte
	err := p.DB.QueryRow(ctx, `
        SELECT id::text, name, buffer, public_url, created_at
        FROM templates
        WHERE id = $1
        `, id).Scan(&t.ID, &t.Name, &data, &t.PublicURL, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, nil, ErrNotFound
	}
	if err != nil {
		return Template{}, nil, fmt.Errorf("select template: %w", err)
	}
	t.Size = len(data)
	return t, data, nil
}

func (p *Postgres) List(ctx context.Context) ([]Template, error) {
	rows, err := p.DB.Query(ctx, `
        SELECT id::text, name, octet_length(buffer), public_url, created_at
        FROM templates
        ORDER BY created_at DESC, id
        `)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var t Template
		var created time.Time
		if err := rows.Scan(&t.ID, &t.Name, &t.Size, &t.PublicURL, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = created
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		p.DB.Close()
	}
}
