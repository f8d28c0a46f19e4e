package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sticker-floor-tracker/config"
	"sticker-floor-tracker/internal/metrics"
	"sticker-floor-tracker/internal/model"
	"sticker-floor-tracker/internal/pacer"
)

// MarketClient is the subset of the marketplace API the pipeline needs.
type MarketClient interface {
	ListCollections(ctx context.Context) []model.Collection
	ListPacks(ctx context.Context, collectionID model.ID) []model.Pack
	FloorPrice(ctx context.Context, collectionID, packID model.ID) (decimal.Decimal, bool, error)
	ResetPackCache()
}

// ReferenceLookup finds issuance metadata by collection and sub-collection name.
type ReferenceLookup interface {
	Lookup(collection, subCollection string) (model.ReferenceRow, bool)
}

// ReportWriter persists the rows of one run and returns the file written.
type ReportWriter interface {
	Write(rows []model.ResultRow) (string, error)
}

// Service orchestrates one fetch-merge-report pass over the marketplace.
type Service struct {
	cfg       *config.Config
	market    MarketClient
	reference ReferenceLookup
	writer    ReportWriter
	pacer     pacer.Pacer
	logger    *log.Logger
}

// NewService creates the pipeline service. Pack-list and floor requests are
// spaced by cfg.Pacing.MinInterval.
func NewService(cfg *config.Config, market MarketClient, reference ReferenceLookup, writer ReportWriter, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		cfg:       cfg,
		market:    market,
		reference: reference,
		writer:    writer,
		pacer:     pacer.NewGate(cfg.Pacing.MinInterval),
		logger:    logger,
	}
}

// Run executes RunOnce immediately and then every interval until ctx is
// cancelled. A non-positive interval runs once.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if _, err := s.RunOnce(ctx); err != nil {
		if interval <= 0 {
			return err
		}
		s.logger.Printf("Error: run failed: %v", err)
	}
	if interval <= 0 {
		return nil
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("Scheduler shutting down.")
			return nil
		case <-timer.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Printf("Error: run failed: %v", err)
			}
			timer.Reset(interval)
		}
	}
}

// RunOnce collects floor prices, writes the report and flushes metrics.
// It returns the report path, or "" when there was nothing to write.
func (s *Service) RunOnce(ctx context.Context) (string, error) {
	runID := uuid.NewString()
	start := time.Now()
	s.logger.Printf("Run %s started", runID)

	// Pack lists are cached for one run only.
	s.market.ResetPackCache()
	rows := s.Collect(ctx)
	metrics.ReportRows.Set(float64(len(rows)))

	path, err := s.writer.Write(rows)
	if err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if path == "" {
		s.logger.Println("No floor prices collected; report not written.")
	} else {
		s.logger.Printf("Done! Saved %d rows to %s", len(rows), path)
	}

	metrics.RunDuration.Observe(time.Since(start).Seconds())
	metrics.LastRunTimestamp.SetToCurrentTime()
	if s.cfg.Metrics.Enabled {
		if err := metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
			s.logger.Printf("Warning: %v", err)
		}
	}

	s.logger.Printf("Run %s finished in %s", runID, time.Since(start).Round(time.Millisecond))
	return path, nil
}

// Collect walks collections and their packs in API order and returns one row
// per pack that has a floor price. Packs without a floor are dropped.
func (s *Service) Collect(ctx context.Context) []model.ResultRow {
	collections := s.market.ListCollections(ctx)
	s.logger.Printf("Found %d collections", len(collections))

	var rows []model.ResultRow
	for _, col := range collections {
		s.logger.Printf("Collection: %s (id=%s)", col.Name, col.ID)

		if err := s.pacer.Wait(ctx); err != nil {
			s.logger.Printf("Stopping: %v", err)
			return rows
		}
		packs := s.market.ListPacks(ctx, col.ID)

		for _, pack := range packs {
			s.logger.Printf("  └─ Sub-collection: %s (pack_id=%s)", pack.Name, pack.ID)

			if err := s.pacer.Wait(ctx); err != nil {
				s.logger.Printf("Stopping: %v", err)
				return rows
			}
			price, ok, err := s.market.FloorPrice(ctx, col.ID, pack.ID)
			switch {
			case err != nil:
				s.logger.Printf("      No floor: %v", err)
				metrics.PacksTotal.WithLabelValues("failed").Inc()
				continue
			case !ok:
				s.logger.Println("      No offers")
				metrics.PacksTotal.WithLabelValues("no_offers").Inc()
				continue
			}

			s.logger.Printf("      Floor: %s TON", price.StringFixed(2))
			metrics.PacksTotal.WithLabelValues("floor").Inc()
			rows = append(rows, s.buildRow(col, pack, price))
		}
	}
	return rows
}

func (s *Service) buildRow(col model.Collection, pack model.Pack, floor decimal.Decimal) model.ResultRow {
	row := model.ResultRow{
		Collection:    col.Name.String(),
		SubCollection: pack.Name.String(),
		Floor:         floor,
	}
	if ref, found := s.reference.Lookup(col.Name.String(), pack.Name.String()); found {
		row.Reference = &ref
		metrics.ReferenceMatchesTotal.WithLabelValues("matched").Inc()
	} else {
		metrics.ReferenceMatchesTotal.WithLabelValues("unmatched").Inc()
	}
	return row
}
