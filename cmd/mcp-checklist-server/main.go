package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const toolName = "checklist_progress"

func newServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "checklist-server",
		Version: "v1.0.0",
	}, nil)

	tool := &mcp.Tool{
		Name:        toolName,
		Description: "Group the task-list checkboxes of a pull request description by heading and report per-section and total progress plus the merge gate decision",
	}
	mcp.AddTool(server, tool, HandleChecklistProgress)
	return server
}

func main() {
	log.Println("[MCP Checklist Server] Starting checklist MCP server v1.0.0")

	server := newServer()
	log.Printf("[MCP Checklist Server] Registered tool: %s", toolName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("[MCP Checklist Server] Received shutdown signal")
		cancel()
	}()

	log.Println("[MCP Checklist Server] Starting on stdio transport...")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("[MCP Checklist Server] Server error: %v", err)
	}
	log.Println("[MCP Checklist Server] Server stopped gracefully")
}
