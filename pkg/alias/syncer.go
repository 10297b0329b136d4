// Package alias keeps the talkgroup alias table in sync with an external
// channel plan published as CSV (radioreference exports and trunk-recorder
// talkgroup files use the same column layout).
package alias

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/trunkstat/trunkstat/pkg/database"
	"github.com/trunkstat/trunkstat/pkg/logger"
)

const (
	// DefaultSyncInterval is how often to refresh the alias table
	DefaultSyncInterval = 24 * time.Hour
	// BatchSize for database upserts
	BatchSize = 500
)

// Syncer downloads the talkgroup CSV and upserts it into the alias table
type Syncer struct {
	repo     *database.TalkgroupRepository
	logger   *logger.Logger
	client   *http.Client
	url      string
	interval time.Duration
}

// NewSyncer creates a new talkgroup alias syncer
func NewSyncer(repo *database.TalkgroupRepository, url string, interval time.Duration, log *logger.Logger) *Syncer {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Syncer{
		repo:     repo,
		logger:   log,
		url:      url,
		interval: interval,
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Start begins the periodic sync process
func (s *Syncer) Start(ctx context.Context) {
	// Sync immediately on startup
	s.logger.Info("Starting talkgroup alias sync", logger.String("url", s.url))
	if err := s.Sync(ctx); err != nil {
		s.logger.Error("Failed to sync talkgroup aliases on startup", logger.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Talkgroup alias syncer stopped")
			return
		case <-ticker.C:
			s.logger.Info("Starting periodic talkgroup alias sync")
			if err := s.Sync(ctx); err != nil {
				s.logger.Error("Failed to sync talkgroup aliases", logger.Error(err))
			}
		}
	}
}

// Sync downloads and parses the talkgroup CSV
func (s *Syncer) Sync(ctx context.Context) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download talkgroup CSV: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn("Failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	aliases, err := s.parseCSV(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse CSV: %w", err)
	}

	s.logger.Info("Parsed talkgroup CSV", logger.Int("talkgroups", len(aliases)))

	if err := s.repo.UpsertBatch(aliases, BatchSize); err != nil {
		return fmt.Errorf("failed to save aliases: %w", err)
	}

	count, _ := s.repo.Count()

	s.logger.Info("Talkgroup alias sync complete",
		logger.Int64("total_aliases", count),
		logger.Duration("duration", time.Since(start)))

	return nil
}

// parseCSV parses the talkgroup export format
// Expected columns: DECIMAL,ALPHA_TAG,DESCRIPTION,TAG,CATEGORY
// A header row is optional; rows whose first column is not a number are skipped.
func (s *Syncer) parseCSV(r io.Reader) ([]database.TalkgroupAlias, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1 // column count varies between exports

	aliases := make([]database.TalkgroupAlias, 0, 1024)
	lineNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			s.logger.Warn("Error reading CSV line",
				logger.Int("line", lineNum),
				logger.Error(err))
			continue
		}

		if len(record) < 2 {
			continue
		}

		tgid, err := strconv.ParseUint(record[0], 10, 16)
		if err != nil {
			continue // header row or junk
		}

		alias := database.TalkgroupAlias{
			TalkgroupID: uint16(tgid),
			Label:       record[1],
			UpdatedAt:   time.Now(),
		}
		if len(record) >= 5 {
			alias.Category = record[4]
		}

		aliases = append(aliases, alias)
	}

	return aliases, nil
}
