package main

import (
	"log"

	"github.com/joho/godotenv"

	"darwin/internal/cli"
	"darwin/internal/logger"
)

func main() {
	// Optional .env for GEMINI_API_KEY / OLLAMA_HOST.
	_ = godotenv.Load()

	if err := logger.Init("darwin.log"); err != nil {
		log.Fatalf("Fatal Error: Could not initialize logger: %v", err)
	}

	cli.Execute()
}
