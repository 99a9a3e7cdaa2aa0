package main

import (
	"log"
	"os"

	"github.com/Ayash-Bera/ticketconsole/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
