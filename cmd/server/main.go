package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"tradepulse/internal/app"
)

func main() {
	// Best effort; a missing .env just means plain environment config
	_ = godotenv.Load()

	application, err := app.NewApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited: %v\n", err)
		os.Exit(1)
	}
}
