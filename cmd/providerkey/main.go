package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra/credentials"
	"github.com/GCUGrayArea/delicious-lotus/internal/normalize"
)

func main() {
	var (
		keyFlag      string
		providerFlag string
	)
	flag.StringVar(&keyFlag, "key", "", "API token for the selected provider (falls back to the provider's environment variable)")
	flag.StringVar(&providerFlag, "provider", normalize.ProviderReplicate, "Provider to configure (replicate, dashscope or openai)")
	flag.Parse()

	_ = godotenv.Load()

	provider, key, err := resolveKey(providerFlag, keyFlag, os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, &infra.Config{DatabaseURL: dbURL})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "providerkey").Str("provider", provider).Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))
	if err := store.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		pool.Close()
		os.Exit(1)
	}
	if err := store.SetToken(ctx, provider, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to store %s token: %v\n", provider, err)
		pool.Close()
		os.Exit(1)
	}
	fmt.Printf("%s token stored\n", provider)
}

// resolveKey validates the provider and picks the token from the flag, or
// from the provider's environment variable.
func resolveKey(providerFlag, keyFlag string, getenv func(string) string) (string, string, error) {
	provider := strings.ToLower(strings.TrimSpace(providerFlag))
	if provider == "" {
		provider = normalize.ProviderReplicate
	}
	envVar, ok := credentials.EnvVar(provider)
	if !ok {
		return "", "", fmt.Errorf("unsupported provider %q", providerFlag)
	}
	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(getenv(envVar))
	}
	if key == "" {
		return "", "", errors.New(provider + " token is required via -key or " + envVar)
	}
	return provider, key, nil
}
