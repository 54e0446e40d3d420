// Command tokengen issues handshake tokens for hosts and users.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/dkeye/farmrelay/internal/auth"
)

func main() {
	secret := pflag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (default $JWT_SECRET)")
	alg := pflag.String("alg", "HS256", "signing algorithm")
	host := pflag.String("host", "", "issue a host token for this hostId")
	user := pflag.String("user", "", "issue a user token for this user id")
	email := pflag.String("email", "", "user email")
	ttl := pflag.Duration("ttl", 24*time.Hour, "token lifetime, 0 for none")
	pflag.Parse()

	if (*host == "") == (*user == "") {
		fmt.Fprintln(os.Stderr, "exactly one of --host or --user is required")
		pflag.Usage()
		os.Exit(2)
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "no secret: pass --secret or set JWT_SECRET")
		os.Exit(2)
	}

	claims := auth.UserClaims(*user, *email)
	if *host != "" {
		claims = auth.HostClaims(*host)
	}
	tok, err := auth.Sign(auth.Options{Secret: []byte(*secret), Alg: *alg}, claims, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
