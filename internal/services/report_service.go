package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/movelabs/movescout/internal/models"
	"github.com/movelabs/movescout/pkg/logger"
)

// ReportService orchestrates one pipeline run: discovery, Move-file
// filtering, then aggregation. Discovery failures abort the run; failures
// inside the later stages degrade to skipped repositories.
type ReportService struct {
	search     *SearchDiscoveryService
	account    *AccountDiscoveryService
	detector   *DetectorService
	aggregator *AggregatorService
	scanFactor int
	timeout    time.Duration
	log        *logrus.Entry
}

func NewReportService(
	search *SearchDiscoveryService,
	account *AccountDiscoveryService,
	detector *DetectorService,
	aggregator *AggregatorService,
	scanFactor int,
	timeout time.Duration,
) *ReportService {
	return &ReportService{
		search:     search,
		account:    account,
		detector:   detector,
		aggregator: aggregator,
		scanFactor: scanFactor,
		timeout:    timeout,
		log:        logger.WithField("component", "reports"),
	}
}

// TopMoveUsers returns the developers with the highest contribution totals
// across Move-containing repositories, at most limit of them. If the run
// deadline expires mid-aggregation, whatever accumulated is returned rather
// than blocking.
func (s *ReportService) TopMoveUsers(ctx context.Context, limit int) ([]models.UserAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	run := s.log.WithFields(logrus.Fields{"run_id": uuid.New().String(), "limit": limit})
	run.Info("starting fleet report")

	candidates, err := s.discoverMoveRepositories(ctx, s.search.Source(limit), limit*s.scanFactor)
	if err != nil {
		return nil, err
	}

	users := s.aggregator.AggregateContributors(ctx, candidates, limit)
	run.WithFields(logrus.Fields{"repositories": len(candidates), "users": len(users)}).Info("fleet report complete")
	return users, nil
}

// UserMoveReport reports, for one account, which of its repositories
// contain Move files and how many commits it authored in each.
func (s *ReportService) UserMoveReport(ctx context.Context, username string) (*models.UserMoveFilesReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	run := s.log.WithFields(logrus.Fields{"run_id": uuid.New().String(), "username": username})
	run.Info("starting single-developer report")

	moveRepos, err := s.discoverMoveRepositories(ctx, s.account.Source(username), 0)
	if err != nil {
		return nil, err
	}

	summaries := s.aggregator.CountAuthorCommits(ctx, moveRepos, username)

	var total uint
	for _, summary := range summaries {
		total += summary.CommitCount
	}

	report := &models.UserMoveFilesReport{
		Username:          username,
		TotalCommits:      total,
		TotalRepositories: len(summaries),
		HasMoveFiles:      len(summaries) > 0,
		Repositories:      summaries,
	}
	run.WithFields(logrus.Fields{"repositories": len(summaries), "commits": total}).Info("single-developer report complete")
	return report, nil
}

// discoverMoveRepositories runs a discovery source, applies the scan cap
// (0 means uncapped) and filters the survivors through the Move-file
// detector.
func (s *ReportService) discoverMoveRepositories(ctx context.Context, source RepositorySource, scanCap int) ([]models.RepositoryRef, error) {
	candidates, err := source.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if scanCap > 0 && len(candidates) > scanCap {
		candidates = candidates[:scanCap]
	}
	return s.detector.FilterMoveRepositories(ctx, candidates)
}
