package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/devricklin/feishu-digest-bot/internal/mcp"
)

const defaultAPIURL = "http://127.0.0.1:9877"

// digest-mcp serves the digest admin API as MCP tools over stdio.
// stdout carries the protocol, so logs go to stderr.
func main() {
	log.SetOutput(os.Stderr)
	godotenv.Load()

	apiURL := os.Getenv("DIGEST_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
		if port := os.Getenv("API_PORT"); port != "" {
			apiURL = fmt.Sprintf("http://127.0.0.1:%s", port)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := mcp.NewServer(mcp.NewClient(apiURL))
	log.Printf("[MCP] Serving digest tools for %s", apiURL)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
