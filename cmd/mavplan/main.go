package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	"mavplan/internal/cli"
	"mavplan/internal/logger"
)

func main() {
	// .env is optional; GEMINI_API_KEY and OLLAMA_HOST may come from the shell.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	if err := logger.Init("mavplan.log"); err != nil {
		log.Fatalf("Fatal Error: Could not initialize logger: %v", err)
	}

	cli.Execute()
}
