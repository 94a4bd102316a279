package main

import (
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"medscan/models"
	"medscan/pkg/config"
)

const minPasswordLen = 6

func main() {
	username := flag.String("username", "", "operator to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	revoke := flag.Bool("revoke", true, "also revoke the operator's refresh tokens")
	flag.Parse()
	if *username == "" || *password == "" {
		log.Fatal("--username and --password are required")
	}
	if len(*password) < minPasswordLen {
		log.Fatalf("password too short (min %d)", minPasswordLen)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.DBEnabled() {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := models.Open(cfg.DBDSN, false, nil)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	var user models.User
	if err := db.Where("username = ?", *username).First(&user).Error; err != nil {
		log.Fatalf("user not found: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt: %v", err)
	}
	if err := db.Model(&user).Update("hashed_password", hash).Error; err != nil {
		log.Fatalf("update failed: %v", err)
	}
	if *revoke {
		res := db.Model(&models.RefreshToken{}).Where("user_id = ? AND revoked = ?", user.ID, false).Update("revoked", true)
		if res.Error != nil {
			log.Fatalf("revoke tokens: %v", res.Error)
		}
		fmt.Printf("revoked %d refresh tokens\n", res.RowsAffected)
	}
	fmt.Printf("Password reset for user %s\n", user.Username)
}
