// cmd/thumbcache/main.go
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tendant/thumbcache/internal/config"
	"github.com/tendant/thumbcache/internal/converters"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(2)
	}

	root := newRootCmd(&app{cfg: cfg, run: converters.ExecRunner})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
