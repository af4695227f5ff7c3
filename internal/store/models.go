package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Profile struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:320;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	DisplayName  string    `gorm:"size:100" json:"displayName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (p *Profile) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:50;not null" json:"name"`
}

type Restaurant struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	Slug        string   `gorm:"uniqueIndex;size:120;not null" json:"slug"`
	Name        string   `gorm:"size:100;not null" json:"name"`
	Description string   `gorm:"size:800" json:"description,omitempty"`
	Address     string   `gorm:"size:200" json:"address,omitempty"`
	Schedule    string   `gorm:"size:500" json:"schedule,omitempty"`
	CoverImgURL string   `gorm:"column:cover_img_url" json:"coverImgUrl,omitempty"`
	Phone       string   `gorm:"size:30" json:"phone,omitempty"`
	Whatsapp    string   `gorm:"size:30" json:"whatsapp,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	CreatedByID string   `gorm:"type:varchar(36);index" json:"createdById"`

	Tags    []Tag    `gorm:"many2many:restaurant_tags" json:"tags"`
	Menus   []Menu   `json:"menus,omitempty"`
	Reviews []Review `json:"reviews,omitempty"`

	// AdminCount is filled by reads; zero means unclaimed.
	AdminCount int64 `gorm:"-" json:"adminCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *Restaurant) Claimed() bool { return r.AdminCount > 0 }

type Administrator struct {
	RestaurantID uint      `gorm:"primaryKey;autoIncrement:false" json:"restaurantId"`
	ProfileID    string    `gorm:"primaryKey;type:varchar(36)" json:"profileId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RestaurantClaim holds at most one row per restaurant; the primary key
// serializes concurrent claims.
type RestaurantClaim struct {
	RestaurantID uint      `gorm:"primaryKey;autoIncrement:false" json:"restaurantId"`
	ProfileID    string    `gorm:"type:varchar(36);not null" json:"profileId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Menu struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	RestaurantID uint           `gorm:"index;not null" json:"restaurantId"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Categories   []MenuCategory `gorm:"foreignKey:MenuID" json:"categories"`
}

type MenuCategory struct {
	ID     uint       `gorm:"primaryKey" json:"id"`
	MenuID uint       `gorm:"index;not null" json:"menuId"`
	Name   string     `gorm:"size:100;not null" json:"name"`
	Items  []MenuItem `gorm:"foreignKey:CategoryID" json:"items"`
}

type MenuItem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	CategoryID  uint   `gorm:"index;not null" json:"categoryId"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:500" json:"description,omitempty"`
	Price       int    `gorm:"not null" json:"price"`
}

type Favorite struct {
	ProfileID    string     `gorm:"primaryKey;type:varchar(36)" json:"profileId"`
	RestaurantID uint       `gorm:"primaryKey;autoIncrement:false" json:"restaurantId"`
	Restaurant   Restaurant `json:"restaurant"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// SuggestionData is the proposed restaurant state, stored as JSON.
type SuggestionData struct {
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	Description string   `json:"description,omitempty"`
	Schedule    string   `json:"schedule,omitempty"`
	TagIDs      []uint   `json:"tagIds,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

func (d *SuggestionData) Scan(value any) error {
	if value == nil {
		*d = SuggestionData{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("unsupported type for SuggestionData: %T", value)
	}
	return json.Unmarshal(b, d)
}

func (d SuggestionData) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type ChangeSuggestion struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	RestaurantID uint           `gorm:"index;not null" json:"restaurantId"`
	CreatorID    string         `gorm:"type:varchar(36);not null" json:"creatorId"`
	Data         SuggestionData `gorm:"type:text" json:"data"`
	CreatedAt    time.Time      `json:"createdAt"`
}

type Review struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"uniqueIndex:idx_review_pair;not null" json:"restaurantId"`
	ProfileID    string    `gorm:"uniqueIndex:idx_review_pair;type:varchar(36);not null" json:"profileId"`
	Rating       int       `gorm:"not null" json:"rating"`
	Comment      string    `gorm:"size:1000" json:"comment,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type BlogPost struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Slug        string     `gorm:"uniqueIndex;size:160;not null" json:"slug" yaml:"slug"`
	Title       string     `gorm:"size:200;not null" json:"title" yaml:"title"`
	Excerpt     string     `gorm:"size:500" json:"excerpt,omitempty" yaml:"excerpt"`
	Body        string     `gorm:"type:text" json:"body,omitempty" yaml:"body"`
	CoverImgURL string     `gorm:"column:cover_img_url" json:"coverImgUrl,omitempty" yaml:"cover_img_url"`
	Published   bool       `gorm:"index" json:"published" yaml:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty" yaml:"published_at"`
}
