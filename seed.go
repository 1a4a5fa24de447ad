package mediumblog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/eringen/mediumblog/content"
	"github.com/eringen/mediumblog/portabletext"
)

// Fixtures is development content for the SQLite store.
type Fixtures struct {
	Authors  []AuthorFixture  `yaml:"authors"`
	Posts    []PostFixture    `yaml:"posts"`
	Comments []CommentFixture `yaml:"comments"`
}

type AuthorFixture struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Image string `yaml:"image"` // image file, relative to the fixtures file
}

type PostFixture struct {
	ID          string              `yaml:"id"`
	Slug        string              `yaml:"slug"` // defaults to the slugified title
	Title       string              `yaml:"title"`
	Description string              `yaml:"description"`
	Author      string              `yaml:"author"`
	MainImage   string              `yaml:"mainImage"`
	CreatedAt   time.Time           `yaml:"createdAt"`
	Body        portabletext.Blocks `yaml:"body"`
}

type CommentFixture struct {
	ID        string    `yaml:"id"`
	Post      string    `yaml:"post"`
	Name      string    `yaml:"name"`
	Email     string    `yaml:"email"`
	Comment   string    `yaml:"comment"`
	Approved  bool      `yaml:"approved"`
	CreatedAt time.Time `yaml:"createdAt"`
}

// LoadFixtures reads a YAML fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, err
	}
	var fx Fixtures
	if err := yaml.Unmarshal(b, &fx); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return fx, nil
}

// Seeder writes fixtures into a Store. Image files are resized and copied
// into the uploads directory under StaticDir.
type Seeder struct {
	Store     *Store
	StaticDir string
	// BaseDir resolves relative image paths, usually the fixtures directory.
	BaseDir string
}

// Seed upserts every author, post and comment in fx.
func (s *Seeder) Seed(ctx context.Context, fx Fixtures) error {
	for _, a := range fx.Authors {
		ref, err := s.image(a.Image)
		if err != nil {
			return fmt.Errorf("author %s: %w", a.ID, err)
		}
		if err := s.Store.SaveAuthor(ctx, AuthorRecord{ID: a.ID, Name: a.Name, Image: ref}); err != nil {
			return err
		}
	}
	for _, p := range fx.Posts {
		ref, err := s.image(p.MainImage)
		if err != nil {
			return fmt.Errorf("post %s: %w", p.ID, err)
		}
		slug := p.Slug
		if slug == "" {
			slug = Slugify(p.Title)
		}
		if slug == "" {
			return fmt.Errorf("post %s: slug is required, add a title or slug", p.ID)
		}
		created := p.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if err := s.Store.SavePost(ctx, PostRecord{
			ID:          p.ID,
			Slug:        slug,
			Title:       p.Title,
			Description: p.Description,
			AuthorID:    p.Author,
			MainImage:   ref,
			Body:        p.Body,
			CreatedAt:   created,
		}); err != nil {
			return err
		}
	}
	for _, c := range fx.Comments {
		if err := s.Store.SaveComment(ctx, content.Comment{
			ID:        c.ID,
			PostID:    c.Post,
			Name:      c.Name,
			Email:     c.Email,
			Text:      c.Comment,
			Approved:  c.Approved,
			CreatedAt: c.CreatedAt,
		}); err != nil {
			return err
		}
	}
	log.Infof("[seed] %d authors, %d posts, %d comments", len(fx.Authors), len(fx.Posts), len(fx.Comments))
	return nil
}

func (s *Seeder) image(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.BaseDir, path)
	}
	ref, err := importImage(path, s.StaticDir)
	if err != nil {
		return "", err
	}
	return ref.String(), nil
}
