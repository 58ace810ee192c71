// resource-import loads the inspection inventory from a CSV file.
// Rows are upserted by resource name.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... go run ./cmd/resource-import --file inventario.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/paradixe/oit_backend/config"
	"bitbucket.org/paradixe/oit_backend/models"
	"bitbucket.org/paradixe/oit_backend/utils"
)

func main() {
	file := flag.String("file", "", "Required: path to the inventory CSV")
	dryRun := flag.Bool("dry-run", false, "Parse and report row counts without writing")
	flag.Parse()

	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read %s: %v\n", *file, err)
		os.Exit(1)
	}

	inputs, err := models.ParseResourceCSV(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csv parse failed: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		fmt.Printf("Parsed %d resource rows (dry run, nothing written)\n", len(inputs))
		return
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "Import")

	result, err := models.ImportResources(ctx, inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Import complete: %d created, %d updated\n", result.Created, result.Updated)
}
