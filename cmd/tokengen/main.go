// Package main provides a CLI tool for generating bearer tokens for the
// credential ledger API. Tokens signed with the dev key will NOT work in production.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "shebuilds/internal/jwt_token"
	"shebuilds/internal/platform/config"
	"shebuilds/pkg/domain"
)

const (
	defaultIssuer   = "http://localhost:8080"
	defaultAudience = "shebuilds-ledger"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	Principal string            `json:"principal"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	principalCmd := flag.NewFlagSet("principal", flag.ExitOnError)

	tokenPrincipal := tokenCmd.String("principal", "", "Caller address (0x + 40 hex). Generated if empty.")
	tokenKey := tokenCmd.String("key", envOr("SHEBUILDS_AUTH_SIGNING_KEY", config.DevSigningKey), "HS256 signing key")
	tokenIssuer := tokenCmd.String("issuer", envOr("SHEBUILDS_AUTH_ISSUER", defaultIssuer), "Token issuer")
	tokenAudience := tokenCmd.String("audience", envOr("SHEBUILDS_AUTH_AUDIENCE", defaultAudience), "Token audience")
	tokenTTL := tokenCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	tokenJSON := tokenCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "token":
		_ = tokenCmd.Parse(os.Args[2:])
		generateToken(*tokenPrincipal, *tokenKey, *tokenIssuer, *tokenAudience, *tokenTTL, *tokenJSON)
	case "principal":
		_ = principalCmd.Parse(os.Args[2:])
		fmt.Println(randomPrincipal())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate bearer tokens for the SheBuilds credential ledger

WARNING: The default signing key is the development key and will NOT work in production.

Usage:
  tokengen <command> [flags]

Commands:
  token       Generate a bearer token whose subject is a principal address
  principal   Print a random principal address

Examples:
  # Token for the bootstrap admin
  tokengen token -principal 0xa000000000000000000000000000000000000001

  # Token for a fresh random caller, as JSON
  tokengen token -json

Use "tokengen <command> -h" for more information about a command.`)
}

func generateToken(principal, key, issuer, audience string, ttl time.Duration, jsonOutput bool) {
	if principal == "" {
		principal = randomPrincipal()
	}
	p, err := domain.ParsePrincipal(principal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid principal %q: %v\n", principal, err)
		os.Exit(1)
	}

	svc := jwttoken.NewJWTService(key, issuer, audience, ttl)
	token, err := svc.IssueToken(context.Background(), p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	keyType := "custom"
	if key == config.DevSigningKey {
		keyType = "dev"
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Type:      "bearer",
			Principal: p.String(),
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"header":      "Authorization: Bearer <token>",
				"signing_key": keyType,
			},
		})
		return
	}
	fmt.Println("Bearer Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Signing Key: %s\n", keyType)
	fmt.Printf("Expires In:  %s\n", ttl)
	fmt.Printf("Principal:   %s\n", p)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/credentials")
}

func randomPrincipal() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating principal: %v\n", err)
		os.Exit(1)
	}
	return "0x" + hex.EncodeToString(b)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
