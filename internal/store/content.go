package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// ListPublishedPosts returns published posts, most recent first.
func (s *Store) ListPublishedPosts(ctx context.Context, offset, limit int) ([]BlogPost, int64, error) {
	db := s.db.WithContext(ctx)
	offset, limit = clampPage(offset, limit)
	var total int64
	if err := db.Model(&BlogPost{}).Where("published = ?", true).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	var posts []BlogPost
	err := db.Where("published = ?", true).
		Omit("body").
		Order("published_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return posts, total, nil
}

func (s *Store) GetPublishedPost(ctx context.Context, slug string) (*BlogPost, error) {
	var p BlogPost
	err := s.db.WithContext(ctx).Where("slug = ? AND published = ?", slug, true).Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post %q: %w", slug, err)
	}
	return &p, nil
}

// Fixtures is the seed file layout.
type Fixtures struct {
	Tags  []string   `yaml:"tags"`
	Posts []BlogPost `yaml:"posts"`
}

func LoadFixtures(r io.Reader) (Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return f, nil
}

// Seed inserts missing tags and upserts blog posts by slug.
func (s *Store) Seed(ctx context.Context, f Fixtures) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range f.Tags {
			if name == "" {
				continue
			}
			err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
				Create(&Tag{Name: name}).Error
			if err != nil {
				return fmt.Errorf("seed tag %q: %w", name, err)
			}
		}
		for _, p := range f.Posts {
			p.ID = 0
			if p.Published && p.PublishedAt == nil {
				now := time.Now().UTC()
				p.PublishedAt = &now
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "excerpt", "body", "cover_img_url", "published", "published_at"}),
			}).Create(&p).Error
			if err != nil {
				return fmt.Errorf("seed post %q: %w", p.Slug, err)
			}
		}
		return nil
	})
}
