package mediumblog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/mediumblog/content"
	"github.com/eringen/mediumblog/portabletext"
)

// Store is a local SQLite document store. It serves the same documents as
// the hosted backend so the blog can run offline.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS authors (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    image TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    author_id TEXT,
    main_image TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    post_id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    comment TEXT NOT NULL,
    approved INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS comments_post_approved ON comments (post_id, approved, created_at);
`)
	return err
}

func imageDoc(ref string) *content.ImageDocument {
	if ref == "" {
		return nil
	}
	return &content.ImageDocument{Type: "image", Asset: &content.Reference{Type: "reference", Ref: ref}}
}

// PostRoutes returns the id and slug of every post.
func (s *Store) PostRoutes(ctx context.Context) ([]content.RouteDocument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, slug FROM posts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []content.RouteDocument
	for rows.Next() {
		var d content.RouteDocument
		if err := rows.Scan(&d.ID, &d.Slug.Current); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// PostBySlug returns the post with its author and approved comments, or
// nil when there is none.
func (s *Store) PostBySlug(ctx context.Context, slug string) (*content.PostDocument, error) {
	var (
		doc                     content.PostDocument
		mainImage, body         string
		authorName, authorImage sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT p.id, p.created_at, p.title, p.description, p.slug, p.main_image, p.body, a.name, a.image
FROM posts p LEFT JOIN authors a ON a.id = p.author_id
WHERE p.slug = ?`, slug).
		Scan(&doc.ID, &doc.CreatedAt, &doc.Title, &doc.Description, &doc.Slug.Current, &mainImage, &body, &authorName, &authorImage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc.MainImage = imageDoc(mainImage)
	if authorName.Valid {
		doc.Author = &content.AuthorDocument{Name: authorName.String, Image: imageDoc(authorImage.String)}
	}
	if err := json.Unmarshal([]byte(body), &doc.Body); err != nil {
		return nil, fmt.Errorf("decode body of post %s: %w", doc.ID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_at, name, email, comment FROM comments
WHERE post_id = ? AND approved = 1 ORDER BY created_at`, doc.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		c := content.CommentDocument{Approved: true, Post: &content.Reference{Type: "reference", Ref: doc.ID}}
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.Name, &c.Email, &c.Comment); err != nil {
			return nil, err
		}
		doc.Comments = append(doc.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// PostSummaries returns every post, newest first.
func (s *Store) PostSummaries(ctx context.Context) ([]content.SummaryDocument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, title, description, slug, main_image FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []content.SummaryDocument
	for rows.Next() {
		var d content.SummaryDocument
		var mainImage string
		if err := rows.Scan(&d.ID, &d.CreatedAt, &d.Title, &d.Description, &d.Slug.Current, &mainImage); err != nil {
			return nil, err
		}
		d.MainImage = imageDoc(mainImage)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// CreateComment stores c awaiting moderation, whatever c.Approved says.
// A comment on an unknown post yields content.ErrNotFound.
func (s *Store) CreateComment(ctx context.Context, c content.Comment) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, c.PostID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("post %s: %w", c.PostID, content.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("look up post %s: %w", c.PostID, err)
	}
	c.Approved = false
	return s.SaveComment(ctx, c)
}

// SaveComment upserts a comment as given.
func (s *Store) SaveComment(ctx context.Context, c content.Comment) error {
	approved := 0
	if c.Approved {
		approved = 1
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO comments (id, post_id, name, email, comment, approved, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.Name, c.Email, c.Text, approved, created.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save comment %s: %w", c.ID, err)
	}
	return nil
}

// AuthorRecord is an author row.
type AuthorRecord struct {
	ID    string
	Name  string
	Image string // image asset ref
}

// SaveAuthor upserts an author.
func (s *Store) SaveAuthor(ctx context.Context, a AuthorRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO authors (id, name, image) VALUES (?, ?, ?)`, a.ID, a.Name, a.Image)
	if err != nil {
		return fmt.Errorf("save author %s: %w", a.ID, err)
	}
	return nil
}

// PostRecord is a post row.
type PostRecord struct {
	ID          string
	Slug        string
	Title       string
	Description string
	AuthorID    string
	MainImage   string // image asset ref
	Body        portabletext.Blocks
	CreatedAt   time.Time
}

// SavePost upserts a post.
func (s *Store) SavePost(ctx context.Context, p PostRecord) error {
	body, err := json.Marshal(p.Body)
	if err != nil {
		return fmt.Errorf("encode body of post %s: %w", p.ID, err)
	}
	if p.Body == nil {
		body = []byte("[]")
	}
	var author any
	if p.AuthorID != "" {
		author = p.AuthorID
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO posts (id, slug, title, description, author_id, main_image, body, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    slug = excluded.slug,
    title = excluded.title,
    description = excluded.description,
    author_id = excluded.author_id,
    main_image = excluded.main_image,
    body = excluded.body,
    created_at = excluded.created_at`,
		p.ID, p.Slug, p.Title, p.Description, author, p.MainImage, string(body), p.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save post %s: %w", p.ID, err)
	}
	return nil
}
