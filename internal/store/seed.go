package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// SeedData is the layout of a seed file: rows as the Supabase REST API
// exports them.
type SeedData struct {
	ContractSummaries []ContractSummary `json:"contract_summaries"`
	Emails            []Email           `json:"emails"`
}

// SeedFromFile upserts every row of a JSON seed file and returns how many
// rows were written. Rows without an id are skipped.
func SeedFromFile(ctx context.Context, seeder Seeder, filePath string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file %s: %w", filePath, err)
	}
	var data SeedData
	if err := json.Unmarshal(content, &data); err != nil {
		return 0, fmt.Errorf("failed to decode seed file %s: %w", filePath, err)
	}

	count := 0
	for i, c := range data.ContractSummaries {
		if c.ID == "" {
			logger.Warn("skipping contract summary without id", "index", i)
			continue
		}
		if err := seeder.UpsertContractSummary(ctx, c); err != nil {
			return count, err
		}
		count++
	}
	for i, e := range data.Emails {
		if e.ID == "" {
			logger.Warn("skipping email without id", "index", i)
			continue
		}
		if err := seeder.UpsertEmail(ctx, e); err != nil {
			return count, err
		}
		count++
	}

	logger.Info("seed complete",
		"file", filePath,
		"contract_summaries", len(data.ContractSummaries),
		"emails", len(data.Emails),
		"written", count,
	)
	return count, nil
}

// AsSeeder returns the writable backend behind s, looking through the read
// cache.
func AsSeeder(s Store) (Seeder, bool) {
	for {
		if seeder, ok := s.(Seeder); ok {
			return seeder, true
		}
		u, ok := s.(interface{ Unwrap() Store })
		if !ok {
			return nil, false
		}
		s = u.Unwrap()
	}
}
