package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/metrics"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/tracing"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/search"
)

// SearchService runs full-text search across reports, clients and inspections.
type SearchService struct {
	repo   domain.SearchRepository
	logger *slog.Logger
}

func NewSearchService(repo domain.SearchRepository, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{repo: repo, logger: logger}
}

// Search validates q before touching the store, then queries the three
// entity types in parallel. Results are grouped reports, clients,
// inspections, each ranked.
func (s *SearchService) Search(ctx context.Context, ownerID, q string) ([]domain.SearchHit, error) {
	tsquery, err := search.Build(q)
	if err != nil {
		metrics.ObserveSearch("invalid", 0)
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "search")
	start := time.Now()

	var reports, clients, inspections []domain.SearchHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		reports, err = s.repo.SearchReports(gctx, ownerID, tsquery, search.ResultLimit)
		return err
	})
	g.Go(func() (err error) {
		clients, err = s.repo.SearchClients(gctx, ownerID, tsquery, search.ResultLimit)
		return err
	})
	g.Go(func() (err error) {
		inspections, err = s.repo.SearchInspections(gctx, ownerID, tsquery, search.ResultLimit)
		return err
	})
	err = g.Wait()
	tracing.End(span, err)
	if err != nil {
		metrics.ObserveSearch("error", time.Since(start))
		s.logger.Error("search failed",
			slog.String("user_id", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	metrics.ObserveSearch("ok", time.Since(start))

	out := make([]domain.SearchHit, 0, len(reports)+len(clients)+len(inspections))
	out = append(out, reports...)
	out = append(out, clients...)
	out = append(out, inspections...)
	return out, nil
}
