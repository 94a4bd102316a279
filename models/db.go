package models

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres. When migrate is true the schema is migrated
// table by table; a failing table is logged and does not block the others.
// Roles are always seeded.
func Open(dsn string, migrate bool, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if migrate {
		Migrate(db, log)
	}
	if err := SeedRoles(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate for every model. Roles go first so the users FK
// can be applied.
func Migrate(db *gorm.DB, log *zap.Logger) {
	steps := []struct {
		table string
		model any
	}{
		{"roles", &Role{}},
		{"users", &User{}},
		{"refresh_tokens", &RefreshToken{}},
		{"scans", &Scan{}},
		{"scan_medications", &ScanMedication{}},
	}
	for _, s := range steps {
		if err := db.AutoMigrate(s.model); err != nil {
			log.Warn("migration warning", zap.String("table", s.table), zap.Error(err))
		}
	}
}

// SeedRoles inserts DefaultRoles that are missing.
func SeedRoles(db *gorm.DB) error {
	for _, r := range DefaultRoles {
		r := r
		if err := db.Where(Role{Name: r.Name}).Attrs(Role{Description: r.Description}).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}
	return nil
}

// RoleByName looks a role up by name.
func RoleByName(db *gorm.DB, name string) (*Role, error) {
	var r Role
	if err := db.Where("name = ?", name).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}
