// Package main is the entry point for the ragctl CLI, the core
// orchestrator binary spec.md §6 describes: serve, ingest, reindex,
// cache-flush, migrate.
package main

import (
	"os"

	"github.com/ZacharyN/org-archivist-sub001/cmd/ragctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
