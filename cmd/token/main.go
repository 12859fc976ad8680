// Command token mints an HS256 bearer token for local development.
//
//	JWT_SECRET=dev go run ./cmd/token -sub dispatcher-1 -role DISPATCHER -ttl 8h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkordes/fleet-dispatch/internal/domain"
	"github.com/pkordes/fleet-dispatch/internal/middleware"
)

func main() {
	sub := flag.String("sub", "dispatcher-1", "subject claim, recorded as the acting user")
	role := flag.String("role", string(domain.RoleDispatcher), "role claim: ADMIN, MANAGER, DISPATCHER, SAFETY_OFFICER or FINANCE")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}

	token, err := middleware.SignToken([]byte(secret), *sub, domain.Role(*role), *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
