package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"medscan/models"
	"medscan/pkg/config"
)

func main() {
	admin := flag.Bool("admin", false, "grant the administrator role instead of operator")
	flag.Usage = func() {
		fmt.Println("usage: go run ./cmd/create_user [-admin] <username> <password>")
	}
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}
	username := strings.TrimSpace(flag.Arg(0))
	password := flag.Arg(1)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.DBEnabled() {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := models.Open(cfg.DBDSN, cfg.DBAutoMigrate, nil)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	roleName := models.RoleOperator
	if *admin {
		roleName = models.RoleAdministrator
	}
	role, err := models.RoleByName(db, roleName)
	if err != nil {
		log.Fatalf("role %s: %v", roleName, err)
	}

	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", username, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	rid := role.ID
	user := models.User{Username: username, HashedPassword: hpw, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created %s %s id=%d\n", roleName, username, user.ID)
}
