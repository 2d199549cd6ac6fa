// Package main is the entry point for the terminal chat client.
package main

import (
	"github.com/mutumwa-ai/chat-platform/internal/cli"
)

func main() {
	cli.Execute()
}
