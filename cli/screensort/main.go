package main

import (
	"os"

	"github.com/joho/godotenv"

	screensortcmder "github.com/mitgor/screensort/cmd/screensort"
)

func main() {
	// Load .env if present; missing files are fine.
	_ = godotenv.Load()

	cmd := screensortcmder.NewScreensortCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
