package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	internalcli "github.com/adyen/marketprobe/internal/cli"
)

var version = "0.1.0"

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	app := internalcli.NewApp(version)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
