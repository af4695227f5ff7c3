package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// MenuBelongsToRestaurant reports whether menuID is one of ref's menus. A
// missing restaurant or menu yields false.
func (s *Store) MenuBelongsToRestaurant(ctx context.Context, menuID uint, ref RestaurantRef) (bool, error) {
	db := s.db.WithContext(ctx)
	rid, err := restaurantID(db, ref)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var n int64
	if err := db.Model(&Menu{}).Where("id = ? AND restaurant_id = ?", menuID, rid).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check menu %d: %w", menuID, err)
	}
	return n > 0, nil
}

// MenuIDs lists the menus of restaurantID in id order.
func (s *Store) MenuIDs(ctx context.Context, restaurantID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&Menu{}).
		Where("restaurant_id = ?", restaurantID).Order("id").Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list menus of %d: %w", restaurantID, err)
	}
	return ids, nil
}

type MenuItemInput struct {
	ID          uint
	Name        string
	Description string
	Price       int
}

type MenuCategoryInput struct {
	ID    uint
	Name  string
	Items []MenuItemInput
}

type MenuInput struct {
	Name       string
	Categories []MenuCategoryInput
}

func newCategory(menuID uint, in MenuCategoryInput) MenuCategory {
	c := MenuCategory{MenuID: menuID, Name: in.Name}
	for _, it := range in.Items {
		c.Items = append(c.Items, MenuItem{Name: it.Name, Description: it.Description, Price: it.Price})
	}
	return c
}

// CreateMenu inserts a menu with its categories and items. Input ids are ignored.
func (s *Store) CreateMenu(ctx context.Context, restaurantID uint, in MenuInput) (*Menu, error) {
	m := &Menu{RestaurantID: restaurantID, Name: in.Name}
	for _, c := range in.Categories {
		m.Categories = append(m.Categories, newCategory(0, c))
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("create menu: %w", err)
	}
	return m, nil
}

func (s *Store) GetMenu(ctx context.Context, menuID uint) (*Menu, error) {
	var m Menu
	err := s.db.WithContext(ctx).
		Preload("Categories", orderByID).
		Preload("Categories.Items", orderByID).
		Take(&m, menuID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get menu %d: %w", menuID, err)
	}
	return &m, nil
}

// UpdateMenu makes the stored menu match in. Categories and items carrying an
// id are updated in place, missing ones are deleted and id-less ones created.
// An id that belongs to another menu or category is ErrNotFound.
func (s *Store) UpdateMenu(ctx context.Context, menuID uint, in MenuInput) (*Menu, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m Menu
		if err := tx.Take(&m, menuID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&m).Update("name", in.Name).Error; err != nil {
			return err
		}

		var keep []uint
		for _, c := range in.Categories {
			if c.ID != 0 {
				keep = append(keep, c.ID)
			}
		}
		stale := tx.Model(&MenuCategory{}).Select("id").Where("menu_id = ?", menuID)
		if len(keep) > 0 {
			stale = stale.Where("id NOT IN ?", keep)
		}
		if err := tx.Where("category_id IN (?)", stale).Delete(&MenuItem{}).Error; err != nil {
			return err
		}
		del := tx.Where("menu_id = ?", menuID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		if err := del.Delete(&MenuCategory{}).Error; err != nil {
			return err
		}

		for _, c := range in.Categories {
			if err := updateCategory(tx, menuID, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update menu %d: %w", menuID, err)
	}
	return s.GetMenu(ctx, menuID)
}

func updateCategory(tx *gorm.DB, menuID uint, in MenuCategoryInput) error {
	if in.ID == 0 {
		c := newCategory(menuID, in)
		return tx.Create(&c).Error
	}
	res := tx.Model(&MenuCategory{}).Where("id = ? AND menu_id = ?", in.ID, menuID).Update("name", in.Name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	var keep []uint
	for _, it := range in.Items {
		if it.ID != 0 {
			keep = append(keep, it.ID)
		}
	}
	del := tx.Where("category_id = ?", in.ID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&MenuItem{}).Error; err != nil {
		return err
	}

	for _, it := range in.Items {
		if it.ID == 0 {
			item := MenuItem{CategoryID: in.ID, Name: it.Name, Description: it.Description, Price: it.Price}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			continue
		}
		res := tx.Model(&MenuItem{}).
			Where("id = ? AND category_id = ?", it.ID, in.ID).
			Updates(map[string]any{"name": it.Name, "description": it.Description, "price": it.Price})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (s *Store) DeleteMenu(ctx context.Context, menuID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats := tx.Model(&MenuCategory{}).Select("id").Where("menu_id = ?", menuID)
		if err := tx.Where("category_id IN (?)", cats).Delete(&MenuItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_id = ?", menuID).Delete(&MenuCategory{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Menu{}, menuID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete menu %d: %w", menuID, err)
	}
	return nil
}
