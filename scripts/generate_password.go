// scripts/generate_password.go
// Command generate_password prints a bcrypt hash for a plaintext password,
// handy when provisioning the initial admin account by hand.
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

const hashCost = 12

func main() {
	if len(os.Args) != 2 {
		log.Fatal("usage: generate_password <password>")
	}
	plain := []byte(os.Args[1])

	hash, err := bcrypt.GenerateFromPassword(plain, hashCost)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, plain); err != nil {
		log.Fatalf("verify: %v", err)
	}

	fmt.Println(string(hash))
}
