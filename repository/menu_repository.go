package repository

import (
	"context"

	"barorder/entity"

	"gorm.io/gorm"
)

type MenuRepository struct {
	DB *gorm.DB
}

func NewMenuRepository(db *gorm.DB) *MenuRepository {
	return &MenuRepository{DB: db}
}

// GetItemBasics reads the fields placement needs: price snapshot, owning
// vendor and the availability flag at order time.
func (r *MenuRepository) GetItemBasics(ctx context.Context, id uint) (entity.MenuItem, error) {
	var m entity.MenuItem
	err := r.DB.WithContext(ctx).
		Select("id, name, price, available, vendor_id").
		First(&m, id).Error
	return m, err
}

func (r *MenuRepository) ListForVendor(ctx context.Context, vendorID uint) ([]entity.MenuItem, error) {
	var items []entity.MenuItem
	err := r.DB.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}
