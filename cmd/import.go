package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iluma/rivalviews-cli/internal/model"
)

var importJSONPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import businesses from a JSON file",
	Long: `Reads an array of business records from a JSON file and upserts them.
Records without an id are assigned one; records whose id already exists are
updated in place without touching their stored sub-scores.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		records, err := loadImportFile(importJSONPath)
		if err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.UpsertBusinesses(ctx, records)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int64("upserted", n),
			zap.String("file", importJSONPath),
		)
		fmt.Printf("Imported %d businesses from %s\n", n, importJSONPath)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importJSONPath, "json", "", "path to JSON file (required)")
	_ = importCmd.MarkFlagRequired("json")
	rootCmd.AddCommand(importCmd)
}

// loadImportFile parses and normalizes an import file. Missing ids, statuses
// and potentials get defaults; a record without a name is rejected.
func loadImportFile(path string) ([]model.BusinessRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: read %s", path)
	}

	var records []model.BusinessRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "import: parse %s", path)
	}

	now := time.Now().UTC()
	for i := range records {
		r := &records[i]
		if r.Name == "" {
			return nil, eris.Errorf("import: record %d has no name", i)
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.Status == "" {
			r.Status = model.StatusProspect
		}
		if r.Potential == "" {
			r.Potential = model.PotentialMedium
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
	}
	return records, nil
}
