// Package store persists restodir data with gorm on sqlite or postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyClaimed   = errors.New("restaurant already claimed")
	ErrAlreadyFavorited = errors.New("restaurant already favorited")
	ErrNotFavorited     = errors.New("restaurant not favorited")
	ErrAlreadyReviewed  = errors.New("restaurant already reviewed")
	ErrEmailTaken       = errors.New("email already registered")
	ErrSlugTaken        = errors.New("slug already taken")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// Open connects to driver ("sqlite" or "postgres") and pings the database.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}
	var dial gorm.Dialector
	switch driver {
	case "sqlite":
		dial = sqlite.Open(dsn)
	case "postgres":
		dial = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm %s: %w", driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve %s sql db handle: %w", driver, err)
	}
	if driver == "sqlite" {
		// sqlite serializes writers; one connection also keeps :memory: databases whole
		sqlDB.SetMaxOpenConns(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates or updates every table.
func (s *Store) AutoMigrate() error {
	models := []any{
		&Profile{}, &Tag{}, &Restaurant{}, &Administrator{}, &RestaurantClaim{},
		&Menu{}, &MenuCategory{}, &MenuItem{}, &Favorite{}, &ChangeSuggestion{},
		&Review{}, &BlogPost{},
	}
	for _, m := range models {
		if err := s.db.AutoMigrate(m); err != nil {
			return fmt.Errorf("auto-migrate %T: %w", m, err)
		}
	}
	return nil
}

// RestaurantRef identifies a restaurant by numeric id or by slug.
type RestaurantRef struct {
	ID   uint
	Slug string
}

func RefByID(id uint) RestaurantRef { return RestaurantRef{ID: id} }

func RefBySlug(slug string) RestaurantRef { return RestaurantRef{Slug: slug} }

// ParseRef treats an all-digit string as an id and anything else as a slug.
func ParseRef(s string) RestaurantRef {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil && n > 0 {
		return RefByID(uint(n))
	}
	return RefBySlug(s)
}

func (r RestaurantRef) String() string {
	if r.ID != 0 {
		return strconv.FormatUint(uint64(r.ID), 10)
	}
	return r.Slug
}

func (r RestaurantRef) scope(db *gorm.DB) *gorm.DB {
	if r.ID != 0 {
		return db.Where("id = ?", r.ID)
	}
	return db.Where("slug = ?", r.Slug)
}

// RestaurantID resolves ref to the restaurant's primary key.
func (s *Store) RestaurantID(ctx context.Context, ref RestaurantRef) (uint, error) {
	return restaurantID(s.db.WithContext(ctx), ref)
}

func restaurantID(db *gorm.DB, ref RestaurantRef) (uint, error) {
	if ref.ID == 0 && ref.Slug == "" {
		return 0, ErrNotFound
	}
	var r Restaurant
	err := ref.scope(db.Model(&Restaurant{})).Select("id").Take(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("resolve restaurant %s: %w", ref, err)
	}
	return r.ID, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return offset, limit
}
