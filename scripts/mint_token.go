package main

// Prints an HS256 bearer token for local testing of the /api routes.
//
//	JWT_SECRET_KEY=dev go run ./scripts/mint_token.go -owner <uuid> -ttl 24h

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	owner := flag.String("owner", "", "owner id (uuid); random when empty")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET_KEY is required")
		os.Exit(2)
	}

	id := uuid.New()
	if *owner != "" {
		parsed, err := uuid.Parse(*owner)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -owner: %v\n", err)
			os.Exit(2)
		}
		id = parsed
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(signed)
}
