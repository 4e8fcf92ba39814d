package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	"github.com/noah-isme/alumni-mentorship-api/internal/service"
	"github.com/noah-isme/alumni-mentorship-api/pkg/config"
)

func main() {
	var (
		userID   string
		role     string
		email    string
		fullName string
		ttl      time.Duration
	)

	flag.StringVar(&userID, "user", "", "User (alumni) ID placed in the token subject")
	flag.StringVar(&role, "role", string(models.RoleAdmin), "Role: SUPERADMIN, ADMIN or ALUMNI")
	flag.StringVar(&email, "email", "", "Optional email claim")
	flag.StringVar(&fullName, "name", "", "Optional full name claim")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime; defaults to JWT_EXPIRATION")
	flag.Parse()

	if strings.TrimSpace(userID) == "" {
		flag.Usage()
		os.Exit(2)
	}

	userRole := models.UserRole(strings.ToUpper(role))
	if !userRole.Valid() {
		log.Fatalf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if ttl <= 0 {
		ttl = cfg.JWT.Expiration
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: ttl,
	})
	token, expiresAt, err := tokens.Issue(userID, userRole, email, fullName)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
