package main

import (
	"os"

	"github.com/wonny/aegis/v13/perf/cmd/perf/commands"
)

// main is the entry point for the perf CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/perf [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
