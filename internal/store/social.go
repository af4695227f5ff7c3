package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) AddFavorite(ctx context.Context, profileID string, ref RestaurantRef) error {
	db := s.db.WithContext(ctx)
	rid, err := restaurantID(db, ref)
	if err != nil {
		return err
	}
	err = db.Omit(clause.Associations).Create(&Favorite{ProfileID: profileID, RestaurantID: rid}).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyFavorited
		}
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (s *Store) RemoveFavorite(ctx context.Context, profileID string, ref RestaurantRef) error {
	db := s.db.WithContext(ctx)
	rid, err := restaurantID(db, ref)
	if err != nil {
		return err
	}
	res := db.Where("profile_id = ? AND restaurant_id = ?", profileID, rid).Delete(&Favorite{})
	if res.Error != nil {
		return fmt.Errorf("remove favorite: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFavorited
	}
	return nil
}

func (s *Store) IsFavorite(ctx context.Context, profileID string, ref RestaurantRef) (bool, error) {
	db := s.db.WithContext(ctx)
	rid, err := restaurantID(db, ref)
	if err != nil {
		return false, err
	}
	var n int64
	if err := db.Model(&Favorite{}).Where("profile_id = ? AND restaurant_id = ?", profileID, rid).Count(&n).Error; err != nil {
		return false, fmt.Errorf("is favorite: %w", err)
	}
	return n > 0, nil
}

// ListFavorites returns the caller's favorite restaurants, newest restaurant first.
func (s *Store) ListFavorites(ctx context.Context, profileID string, offset, limit int) (Page, error) {
	db := s.db.WithContext(ctx)
	offset, limit = clampPage(offset, limit)

	var total int64
	if err := db.Model(&Favorite{}).Where("profile_id = ?", profileID).Count(&total).Error; err != nil {
		return Page{}, fmt.Errorf("count favorites: %w", err)
	}
	var favs []Favorite
	err := db.Where("profile_id = ?", profileID).
		Preload("Restaurant").
		Preload("Restaurant.Tags").
		Order("restaurant_id DESC").
		Offset(offset).Limit(limit).
		Find(&favs).Error
	if err != nil {
		return Page{}, fmt.Errorf("list favorites: %w", err)
	}
	rows := make([]Restaurant, 0, len(favs))
	for _, f := range favs {
		rows = append(rows, f.Restaurant)
	}
	if err := s.fillAdminCounts(ctx, rows); err != nil {
		return Page{}, err
	}
	return Page{Restaurants: rows, Total: total}, nil
}

// CreateReview records one review per profile and restaurant.
func (s *Store) CreateReview(ctx context.Context, ref RestaurantRef, profileID string, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating %d out of range", rating)
	}
	db := s.db.WithContext(ctx)
	rid, err := restaurantID(db, ref)
	if err != nil {
		return nil, err
	}
	r := &Review{RestaurantID: rid, ProfileID: profileID, Rating: rating, Comment: comment}
	if err := db.Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	return r, nil
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (s *Store) CreateProfile(ctx context.Context, email, passwordHash, displayName string) (*Profile, error) {
	p := &Profile{Email: normalizeEmail(email), PasswordHash: passwordHash, DisplayName: displayName}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func (s *Store) ProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	return s.profileWhere(ctx, "email = ?", normalizeEmail(email))
}

func (s *Store) ProfileByID(ctx context.Context, id string) (*Profile, error) {
	return s.profileWhere(ctx, "id = ?", id)
}

func (s *Store) profileWhere(ctx context.Context, cond string, arg any) (*Profile, error) {
	var p Profile
	if err := s.db.WithContext(ctx).Where(cond, arg).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}
