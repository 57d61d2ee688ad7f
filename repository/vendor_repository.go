package repository

import (
	"context"

	"barorder/entity"

	"gorm.io/gorm"
)

type VendorRepository struct {
	DB *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{DB: db}
}

func (r *VendorRepository) GetVendor(ctx context.Context, id uint) (*entity.Vendor, error) {
	var v entity.Vendor
	if err := r.DB.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// IsOwnedBy reports whether the vendor belongs to the given user account.
func (r *VendorRepository) IsOwnedBy(ctx context.Context, vendorID, userID uint) (bool, error) {
	var cnt int64
	err := r.DB.WithContext(ctx).Model(&entity.Vendor{}).
		Where("id = ? AND user_id = ?", vendorID, userID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *VendorRepository) ListVendorsForUser(ctx context.Context, userID uint) ([]entity.Vendor, error) {
	var out []entity.Vendor
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&out).Error
	return out, err
}
