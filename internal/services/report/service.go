package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"argus/internal/domain/trade"
	"argus/internal/metrics"
	"argus/pkg/errors"
	"argus/pkg/logger"
)

// TradeFetcher pulls the full trade history for one market.
type TradeFetcher interface {
	FetchMarketTrades(ctx context.Context, conditionID string, maxTrades int) ([]trade.Raw, error)
}

// Service builds market activity reports: fetch every trade for a market,
// roll up turnover and participants, export a workbook.
type Service struct {
	fetcher   TradeFetcher
	outDir    string
	maxTrades int
	now       func() time.Time
	log       *logger.Logger
}

// NewService creates a report service writing workbooks under outDir
func NewService(fetcher TradeFetcher, outDir string, maxTrades int) *Service {
	return &Service{
		fetcher:   fetcher,
		outDir:    outDir,
		maxTrades: maxTrades,
		now:       time.Now,
		log:       logger.Get().With("service", "report"),
	}
}

// GenerateMarketReport fetches, aggregates and exports one market's
// activity. Returns the workbook path. Honors ctx through the fetch;
// long markets cancel cleanly between pages.
func (s *Service) GenerateMarketReport(ctx context.Context, conditionID string) (string, error) {
	if conditionID == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "generate report: empty condition id")
	}

	started := s.now()

	raws, err := s.fetcher.FetchMarketTrades(ctx, conditionID, s.maxTrades)
	if err != nil {
		metrics.ReportsGenerated.WithLabelValues("error").Inc()
		return "", errors.Wrap(err, "fetch market trades")
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	data := Aggregate(raws, s.now().UTC())

	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		metrics.ReportsGenerated.WithLabelValues("error").Inc()
		return "", errors.Wrap(err, "create report dir")
	}

	path := filepath.Join(s.outDir, fmt.Sprintf("market_report_%s.xlsx", uuid.New().String()))
	if err := ExportXLSX(data, path); err != nil {
		metrics.ReportsGenerated.WithLabelValues("error").Inc()
		return "", err
	}

	metrics.ReportsGenerated.WithLabelValues("success").Inc()
	s.log.Infow("market report generated",
		"condition_id", conditionID,
		"trades", data.TotalTrades,
		"participants", len(data.Participants),
		"path", path,
		"took", s.now().Sub(started),
	)
	return path, nil
}
