package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/hostbroker/pkg/config"
	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/types"
)

// migrateCmd reads every Template/Request/Machine from a source storage
// strategy and writes it to a destination strategy inside one transaction
// per collection, grounded on cuemby/warren's
// cmd/warren-migrate (bucket-to-bucket copy inside one bolt.Update,
// dry-run flag, record count logging) generalized from one bolt bucket to
// any pair of registered storage.Strategy backends.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy every Template, Request, and Machine from one storage strategy to another",
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceKind, _ := cmd.Flags().GetString("source-kind")
		sourcePath, _ := cmd.Flags().GetString("source-path")
		destKind, _ := cmd.Flags().GetString("dest-kind")
		destPath, _ := cmd.Flags().GetString("dest-path")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		source, err := storage.New(storageConfigFor(sourceKind, sourcePath))
		if err != nil {
			return fmt.Errorf("open source storage: %w", err)
		}
		defer source.Close()

		dest, err := storage.New(storageConfigFor(destKind, destPath))
		if err != nil {
			return fmt.Errorf("open destination storage: %w", err)
		}
		defer dest.Close()

		for _, collection := range []string{types.CollectionTemplates, types.CollectionRequests, types.CollectionMachines} {
			if err := migrateCollection(source, dest, collection, dryRun); err != nil {
				return fmt.Errorf("migrate %s: %w", collection, err)
			}
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("source-kind", "file", "Source storage kind (file, sql, kv)")
	migrateCmd.Flags().String("source-path", "", "Source storage path/DSN")
	migrateCmd.Flags().String("dest-kind", "", "Destination storage kind (file, sql, kv)")
	migrateCmd.Flags().String("dest-path", "", "Destination storage path/DSN")
	migrateCmd.Flags().Bool("dry-run", false, "Show what would be migrated without making changes")
	_ = migrateCmd.MarkFlagRequired("dest-kind")
	_ = migrateCmd.MarkFlagRequired("dest-path")
}

// storageConfigFor builds a minimal config.StorageConfig for kind, routing
// path to whichever field that kind's factory reads (FileBasePath,
// SQLDSN, or KVPath).
func storageConfigFor(kind, path string) config.StorageConfig {
	cfg := config.StorageConfig{Kind: kind}
	switch kind {
	case "sql":
		cfg.SQLDSN = path
	case "kv":
		cfg.KVPath = path
	default:
		cfg.FileBasePath = path
	}
	return cfg
}

func migrateCollection(source, dest storage.Strategy, collection string, dryRun bool) error {
	records, err := source.FindAll(collection)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "found %d records in %s\n", len(records), collection)
	if dryRun || len(records) == 0 {
		return nil
	}

	tx, err := dest.BeginTransaction()
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := tx.Save(collection, rec); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "migrated %d records in %s\n", len(records), collection)
	return nil
}
