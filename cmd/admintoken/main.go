package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"growly/internal/config"
	"growly/internal/pkg/jwt"
)

func main() {
	subject := flag.String("sub", "admin", "operator name stored in the token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime (default ADMIN_JWT_TTL)")
	hash := flag.Bool("hash", false, "read a shared secret from stdin and print its bcrypt hash for ADMIN_TOKEN_BCRYPT")
	flag.Parse()

	if *hash {
		secret, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && secret == "" {
			log.Fatalf("read secret: %v", err)
		}
		secret = strings.TrimSpace(secret)
		if secret == "" {
			log.Fatal("secret is empty")
		}
		out, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash secret: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Admin.JWTSecret == "" {
		log.Fatal("ADMIN_JWT_SECRET is required")
	}

	lifetime := cfg.Admin.JWTTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := jwt.New(cfg.Admin.JWTSecret, lifetime).GenerateToken(*subject, jwt.RoleAdmin)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}

	fmt.Println(token)
	log.Printf("admin token for %q expires at %s", *subject, time.Now().Add(lifetime).UTC().Format(time.RFC3339))
}
