package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/inkwell-cms/inkgate/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/keygen/main.go <user-id> [name]")
		fmt.Println("Mints an API token for the given user and prints the insert statement")
		os.Exit(1)
	}

	userID := os.Args[1]
	name := "Generated token"
	if len(os.Args) > 2 {
		name = os.Args[2]
	}

	raw := "ink_" + uuid.New().String()
	hash := auth.HashToken(raw)

	fmt.Printf("API Token: %s\n", raw)
	fmt.Printf("SHA-256 Hash: %s\n", hash)
	fmt.Println("\nStore only the hash. Run this against the database:")
	fmt.Printf("  INSERT INTO api_tokens (id, user_id, name, token_hash, status, created_at)\n")
	fmt.Printf("  VALUES ('%s', '%s', '%s', '%s', 'active', CURRENT_TIMESTAMP);\n",
		uuid.New().String(), userID, name, hash)
}
