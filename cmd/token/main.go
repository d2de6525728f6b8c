// Command token mints a bearer token for the api using JWT_SECRET and JWT_ISSUER.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/thanhtrancs/Mapty/internal/auth"
	"github.com/thanhtrancs/Mapty/internal/config"
)

func main() {
	subject := flag.String("sub", "mapty-user", "token subject")
	scopes := flag.String("scopes", auth.ScopeWorkoutsRead+","+auth.ScopeWorkoutsWrite, "comma separated scopes")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	token, err := auth.Issue(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, *subject, splitScopes(*scopes), *ttl)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
}

func splitScopes(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
