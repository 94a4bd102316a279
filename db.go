package main

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"medscan/models"
)

var db *gorm.DB

func initDB() {
	var err error
	db, err = models.Open(cfg.DBDSN, cfg.DBAutoMigrate, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres database", zap.Error(err))
	}
	seedDB()
}

// seedDB creates the admin operator when ADMIN_PASSWORD is set and no admin
// exists yet.
func seedDB() {
	if cfg.AdminPassword == "" {
		return
	}
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return
	}
	role, err := models.RoleByName(db, models.RoleAdministrator)
	if err != nil {
		logger.Error("failed to find administrator role", zap.Error(err))
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("bcrypt failed", zap.Error(err))
		return
	}
	admin := models.User{Username: "admin", HashedPassword: hashed, RoleID: &role.ID}
	if err := db.Create(&admin).Error; err != nil {
		logger.Error("failed to seed admin", zap.Error(err))
		return
	}
	logger.Info("seeded admin operator", zap.Uint("id", admin.ID))
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	if err := os.MkdirAll(cfg.UploadBase, 0o755); err != nil {
		logger.Warn("failed to create upload base dir", zap.String("dir", cfg.UploadBase), zap.Error(err))
	}
}
