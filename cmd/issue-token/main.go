// issue-token mints a service JWT for the /internal/ops endpoints.
//
// Usage:
//
//	API_SECRET=... go run ./cmd/issue-token --role admin
package main

import (
	"flag"
	"fmt"
	"os"

	"bitbucket.org/paradixe/oit_backend/utils"
)

func main() {
	userID := flag.Int("user-id", 0, "User id to embed in the claims (0 for service jobs)")
	role := flag.String("role", "admin", "Role claim: admin or inspector")
	flag.Parse()

	token, err := utils.JwtGenerate(*userID, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
