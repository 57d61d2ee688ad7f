package configs

import (
	"log"

	"barorder/entity"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin creates the first admin account from the environment.
func SeedAdmin(db *gorm.DB) error {
	email := getEnv("ADMIN_EMAIL", "")
	pass := getEnv("ADMIN_PASSWORD", "")
	if email == "" || pass == "" {
		log.Println("skip seeding admin: missing ADMIN_EMAIL/ADMIN_PASSWORD")
		return nil
	}

	var count int64
	db.Model(&entity.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := entity.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Admin",
		Role:         "admin",
	}
	return db.Create(&admin).Error
}

// SeedDemo sets up a demo vendor with a small menu so a fresh install has
// something to order from. Skipped when any vendor already exists.
func SeedDemo(db *gorm.DB) error {
	var count int64
	db.Model(&entity.Vendor{}).Count(&count)
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	owner := entity.User{
		Email: "demo-vendor@example.com", PasswordHash: string(hash),
		Name: "Demo Vendor", Role: "vendor",
	}
	if err := db.Create(&owner).Error; err != nil {
		return err
	}

	vendor := entity.Vendor{
		Name: "Harbour Bar", Active: true, Currency: "EUR",
		PayOnPickup: true, UserID: owner.ID,
	}
	if err := db.Create(&vendor).Error; err != nil {
		return err
	}

	items := []entity.MenuItem{
		{Name: "Espresso", Price: 250, Available: true, VendorID: vendor.ID},
		{Name: "Aperol Spritz", Price: 800, Available: true, VendorID: vendor.ID},
		{Name: "Club Sandwich", Price: 950, Available: true, VendorID: vendor.ID},
	}
	return db.Create(&items).Error
}
