package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/TwigBush/restodir/internal/policy"
)

// FetchOwnership reads the creator and administrators of a restaurant from
// the current database state.
func (s *Store) FetchOwnership(ctx context.Context, ref RestaurantRef) (policy.Ownership, error) {
	db := s.db.WithContext(ctx)
	if ref.ID == 0 && ref.Slug == "" {
		return policy.Ownership{}, ErrNotFound
	}
	var r Restaurant
	err := ref.scope(db.Model(&Restaurant{})).Select("id", "created_by_id").Take(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return policy.Ownership{}, ErrNotFound
		}
		return policy.Ownership{}, fmt.Errorf("fetch ownership %s: %w", ref, err)
	}
	var admins []string
	err = db.Model(&Administrator{}).
		Where("restaurant_id = ?", r.ID).
		Order("created_at ASC").
		Pluck("profile_id", &admins).Error
	if err != nil {
		return policy.Ownership{}, fmt.Errorf("fetch administrators %s: %w", ref, err)
	}
	return policy.Ownership{CreatorID: r.CreatedByID, Admins: admins}, nil
}

type Location struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

type Filter struct {
	Offset int
	Limit  int
	Query  string
	TagIDs []uint
	Near   *Location
}

type Page struct {
	Restaurants []Restaurant `json:"restaurants"`
	Total       int64        `json:"total"`
}

const earthRadiusKm = 6371

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// ListRestaurants returns newest first, or nearest first when f.Near is set.
func (s *Store) ListRestaurants(ctx context.Context, f Filter) (Page, error) {
	db := s.db.WithContext(ctx)
	offset, limit := clampPage(f.Offset, f.Limit)

	q := db.Model(&Restaurant{})
	if qs := strings.TrimSpace(f.Query); qs != "" {
		like := "%" + strings.ToLower(qs) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(address) LIKE ?)", like, like, like)
	}
	if len(f.TagIDs) > 0 {
		q = q.Where("id IN (?)", db.Table("restaurant_tags").Select("restaurant_id").Where("tag_id IN ?", f.TagIDs))
	}

	var ids []uint
	var total int64
	if f.Near != nil {
		type point struct {
			ID  uint
			Lat float64
			Lng float64
		}
		var pts []point
		if err := q.Where("lat IS NOT NULL AND lng IS NOT NULL").Select("id", "lat", "lng").Scan(&pts).Error; err != nil {
			return Page{}, fmt.Errorf("list restaurants: %w", err)
		}
		type hit struct {
			id   uint
			dist float64
		}
		hits := make([]hit, 0, len(pts))
		for _, p := range pts {
			if d := Haversine(f.Near.Lat, f.Near.Lng, p.Lat, p.Lng); d <= f.Near.RadiusKm {
				hits = append(hits, hit{p.ID, d})
			}
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
		total = int64(len(hits))
		for i := offset; i < len(hits) && i < offset+limit; i++ {
			ids = append(ids, hits[i].id)
		}
	} else {
		if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return Page{}, fmt.Errorf("count restaurants: %w", err)
		}
		if err := q.Order("id DESC").Offset(offset).Limit(limit).Pluck("id", &ids).Error; err != nil {
			return Page{}, fmt.Errorf("list restaurants: %w", err)
		}
	}
	if len(ids) == 0 {
		return Page{Restaurants: []Restaurant{}, Total: total}, nil
	}

	var rows []Restaurant
	if err := db.Preload("Tags").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return Page{}, fmt.Errorf("load restaurants: %w", err)
	}
	if err := s.fillAdminCounts(ctx, rows); err != nil {
		return Page{}, err
	}
	found := make(map[uint]Restaurant, len(rows))
	for _, r := range rows {
		found[r.ID] = r
	}
	out := make([]Restaurant, 0, len(ids))
	for _, id := range ids {
		if r, ok := found[id]; ok {
			out = append(out, r)
		}
	}
	return Page{Restaurants: out, Total: total}, nil
}

func (s *Store) fillAdminCounts(ctx context.Context, rows []Restaurant) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uint, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	var counts []struct {
		RestaurantID uint
		N            int64
	}
	err := s.db.WithContext(ctx).Model(&Administrator{}).
		Select("restaurant_id, COUNT(*) AS n").
		Where("restaurant_id IN ?", ids).
		Group("restaurant_id").
		Scan(&counts).Error
	if err != nil {
		return fmt.Errorf("count administrators: %w", err)
	}
	m := make(map[uint]int64, len(counts))
	for _, c := range counts {
		m[c.RestaurantID] = c.N
	}
	for i := range rows {
		rows[i].AdminCount = m[rows[i].ID]
	}
	return nil
}

func orderByID(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

// GetRestaurant loads a restaurant with tags, menus and reviews.
func (s *Store) GetRestaurant(ctx context.Context, ref RestaurantRef) (*Restaurant, error) {
	if ref.ID == 0 && ref.Slug == "" {
		return nil, ErrNotFound
	}
	var r Restaurant
	err := ref.scope(s.db.WithContext(ctx)).
		Preload("Tags").
		Preload("Menus", orderByID).
		Preload("Menus.Categories", orderByID).
		Preload("Menus.Categories.Items", orderByID).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Take(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get restaurant %s: %w", ref, err)
	}
	rows := []Restaurant{r}
	if err := s.fillAdminCounts(ctx, rows); err != nil {
		return nil, err
	}
	return &rows[0], nil
}

type RestaurantInput struct {
	Name        string
	Slug        string
	Description string
	Address     string
	Schedule    string
	CoverImgURL string
	Phone       string
	Whatsapp    string
	Lat         *float64
	Lng         *float64
	TagIDs      []uint
}

func loadTags(db *gorm.DB, ids []uint) ([]Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []Tag
	if err := db.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	return tags, nil
}

// CreateRestaurant inserts a new, unclaimed restaurant owned by creatorID.
func (s *Store) CreateRestaurant(ctx context.Context, in RestaurantInput, creatorID string) (*Restaurant, error) {
	db := s.db.WithContext(ctx)
	tags, err := loadTags(db, in.TagIDs)
	if err != nil {
		return nil, err
	}
	r := &Restaurant{
		Slug:        in.Slug,
		Name:        in.Name,
		Description: in.Description,
		Address:     in.Address,
		Schedule:    in.Schedule,
		CoverImgURL: in.CoverImgURL,
		Phone:       in.Phone,
		Whatsapp:    in.Whatsapp,
		Lat:         in.Lat,
		Lng:         in.Lng,
		CreatedByID: creatorID,
		Tags:        tags,
	}
	if err := db.Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("create restaurant: %w", err)
	}
	return r, nil
}

// UpdateRestaurant replaces the editable fields and the tag set. The slug is
// never changed.
func (s *Store) UpdateRestaurant(ctx context.Context, id uint, in RestaurantInput) (*Restaurant, error) {
	var out Restaurant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&out, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		err := tx.Model(&out).Updates(map[string]any{
			"name":          in.Name,
			"description":   in.Description,
			"address":       in.Address,
			"schedule":      in.Schedule,
			"cover_img_url": in.CoverImgURL,
			"phone":         in.Phone,
			"whatsapp":      in.Whatsapp,
			"lat":           in.Lat,
			"lng":           in.Lng,
		}).Error
		if err != nil {
			return err
		}
		tags, err := loadTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			return tx.Model(&out).Association("Tags").Clear()
		}
		return tx.Model(&out).Association("Tags").Replace(tags)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update restaurant %d: %w", id, err)
	}
	return &out, nil
}

// DeleteRestaurant removes a restaurant and everything hanging off it.
func (s *Store) DeleteRestaurant(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r Restaurant
		if err := tx.Take(&r, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		menuIDs := tx.Model(&Menu{}).Select("id").Where("restaurant_id = ?", id)
		catIDs := tx.Model(&MenuCategory{}).Select("id").Where("menu_id IN (?)", menuIDs)
		if err := tx.Where("category_id IN (?)", catIDs).Delete(&MenuItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_id IN (?)", menuIDs).Delete(&MenuCategory{}).Error; err != nil {
			return err
		}
		for _, m := range []any{&Menu{}, &Favorite{}, &ChangeSuggestion{}, &Review{}, &Administrator{}, &RestaurantClaim{}} {
			if err := tx.Where("restaurant_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&r).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&r).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete restaurant %d: %w", id, err)
	}
	return nil
}

// ClaimRestaurant makes profileID the first administrator of an unclaimed
// restaurant. The claim row's primary key makes a concurrent second claim
// fail with ErrAlreadyClaimed.
func (s *Store) ClaimRestaurant(ctx context.Context, ref RestaurantRef, profileID string) (uint, error) {
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = restaurantID(tx, ref)
		if err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&Administrator{}).Where("restaurant_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyClaimed
		}
		if err := tx.Create(&RestaurantClaim{RestaurantID: id, ProfileID: profileID}).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyClaimed
			}
			return err
		}
		return tx.Create(&Administrator{RestaurantID: id, ProfileID: profileID}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyClaimed) {
			return 0, err
		}
		return 0, fmt.Errorf("claim restaurant %s: %w", ref, err)
	}
	return id, nil
}

func (s *Store) CreateChangeSuggestion(ctx context.Context, ref RestaurantRef, creatorID string, data SuggestionData) (*ChangeSuggestion, error) {
	db := s.db.WithContext(ctx)
	id, err := restaurantID(db, ref)
	if err != nil {
		return nil, err
	}
	cs := &ChangeSuggestion{RestaurantID: id, CreatorID: creatorID, Data: data}
	if err := db.Create(cs).Error; err != nil {
		return nil, fmt.Errorf("create change suggestion: %w", err)
	}
	return cs, nil
}

func (s *Store) ListChangeSuggestions(ctx context.Context, restaurantID uint) ([]ChangeSuggestion, error) {
	var out []ChangeSuggestion
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list change suggestions: %w", err)
	}
	return out, nil
}
