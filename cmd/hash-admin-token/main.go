package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Reads the admin token from the first argument or stdin and prints the
// bcrypt hash to put in ADMIN_TOKEN_HASH.
func main() {
	var token string
	if len(os.Args) > 1 {
		token = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("Failed to read token: %v", err)
		}
		token = line
	}

	token = strings.TrimSpace(token)
	if token == "" {
		log.Fatal("Token must not be empty")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash token: %v", err)
	}

	// single quotes keep godotenv from expanding the $ signs
	fmt.Printf("ADMIN_TOKEN_HASH='%s'\n", hashed)
}
