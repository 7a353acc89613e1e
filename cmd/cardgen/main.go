package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/goliatone/go-cardgen/internal/cli"
)

func main() {
	// A missing .env is fine; the environment may already be complete.
	_ = godotenv.Load()
	os.Exit(cli.Execute(context.Background(), cli.NewApp(), os.Args[1:]))
}
