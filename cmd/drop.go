package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var dropForce bool

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the metrics database",
	Long: `Delete the SQLite metrics database together with its -wal and -shm files.
Every stored match is lost; re-ingest the event streams to rebuild it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !dropForce {
			fmt.Fprintf(os.Stderr, "Would delete %s. Re-run with --force to confirm.\n", dbPath)
			return nil
		}
		return dropDatabase(os.Stdout, dbPath)
	},
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "actually delete the files")
}

// dbFiles lists the database file and the sidecars SQLite keeps in WAL mode.
func dbFiles(path string) []string {
	return []string{path, path + "-wal", path + "-shm"}
}

func dropDatabase(w io.Writer, path string) error {
	var removed []string
	for _, f := range dbFiles(path) {
		if err := os.Remove(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("remove %s: %w", f, err)
		}
		removed = append(removed, f)
	}
	if len(removed) == 0 {
		fmt.Fprintf(w, "No database at %s.\n", path)
		return nil
	}
	for _, f := range removed {
		fmt.Fprintf(w, "Removed %s\n", f)
	}
	return nil
}
