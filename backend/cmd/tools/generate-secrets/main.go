package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
)

func secret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func main() {
	fmt.Println("=================================================")
	fmt.Println("  Account service secrets")
	fmt.Println("=================================================")
	fmt.Println()
	fmt.Println("Add these to your config/private.yaml:")
	fmt.Printf("jwt_key: \"%s\"\n", secret())
	fmt.Printf("hash_pepper: \"%s\"\n", secret())
	fmt.Println()
	fmt.Println("IMPORTANT:")
	fmt.Println("- jwt_key must match the platform that issues access tokens")
	fmt.Println("- Changing hash_pepper invalidates every pending reset and invite code")
	fmt.Println("- Never commit these values to version control!")
	fmt.Println("=================================================")
}
