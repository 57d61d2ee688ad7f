package configs

import (
	"fmt"

	"barorder/entity"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens the store for the configured driver. The handle is passed
// to callers explicitly; there is no package-level singleton.
func Connect(cfg *Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DBSource), &gorm.Config{})
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DBSource), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Vendor{}, &entity.MenuItem{},
		&entity.Order{}, &entity.OrderItem{}, &entity.StatusHistory{},
	)
}
