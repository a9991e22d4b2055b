package services

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/movelabs/movescout/internal/githubapi"
	"github.com/movelabs/movescout/internal/models"
	"github.com/movelabs/movescout/pkg/logger"
)

// AggregatorService computes per-developer contribution totals across a set
// of Move-containing repositories. One repository's failure never aborts
// aggregation of the rest: the repository is logged and skipped.
type AggregatorService struct {
	fetcher     githubapi.Fetcher
	pager       githubapi.Pager
	concurrency int
	log         *logrus.Entry
}

func NewAggregatorService(fetcher githubapi.Fetcher, pager githubapi.Pager, concurrency int) *AggregatorService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AggregatorService{
		fetcher:     fetcher,
		pager:       pager,
		concurrency: concurrency,
		log:         logger.WithField("component", "aggregator"),
	}
}

// AggregateContributors folds every repository's contributor listing into
// one aggregate per login, then returns the aggregates sorted by total
// contributions descending (stable, so ties keep first-seen order),
// truncated to limit.
func (s *AggregatorService) AggregateContributors(ctx context.Context, repos []models.RepositoryRef, limit int) []models.UserAggregate {
	byLogin := make(map[string]*models.UserAggregate)
	var order []string
	var mu sync.Mutex

	merge := func(fullName string, contributors []models.Contributor) {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range contributors {
			if agg, ok := byLogin[c.Login]; ok {
				agg.Add(c, fullName)
				continue
			}
			byLogin[c.Login] = models.NewUserAggregate(c, fullName)
			order = append(order, c.Login)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, repo := range repos {
		repo := repo
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			contributors, err := s.fetchAllContributors(gctx, repo.FullName)
			if err != nil {
				s.log.WithError(err).WithField("repository", repo.FullName).Warn("skipping repository in aggregation")
				return nil
			}
			merge(repo.FullName, contributors)
			return nil
		})
	}
	_ = g.Wait()

	aggregates := make([]models.UserAggregate, 0, len(order))
	for _, login := range order {
		aggregates = append(aggregates, *byLogin[login])
	}
	sort.SliceStable(aggregates, func(i, j int) bool {
		return aggregates[i].TotalContributions > aggregates[j].TotalContributions
	})

	if limit > 0 && len(aggregates) > limit {
		aggregates = aggregates[:limit]
	}

	s.log.WithFields(logrus.Fields{"repositories": len(repos), "contributors": len(byLogin)}).Info("contributor aggregation complete")
	return aggregates
}

// fetchAllContributors drains every page of a repository's contributor
// listing.
func (s *AggregatorService) fetchAllContributors(ctx context.Context, fullName string) ([]models.Contributor, error) {
	var all []models.Contributor
	err := s.pager.Offset(ctx, func(ctx context.Context, page int) (int, bool, error) {
		contributors, hasMore, err := s.fetcher.ContributorsPage(ctx, fullName, page)
		if err != nil {
			return 0, false, err
		}
		all = append(all, contributors...)
		return len(contributors), !hasMore, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// CountAuthorCommits computes, per repository, how many commits the author
// has there, draining every commit page so counts are exact. Summaries come
// back sorted by commit count descending. Repositories whose listing fails
// are skipped.
func (s *AggregatorService) CountAuthorCommits(ctx context.Context, repos []models.RepositoryRef, author string) []models.RepositoryCommitSummary {
	summaries := make([]models.RepositoryCommitSummary, 0, len(repos))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, repo := range repos {
		repo := repo
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			count, err := s.countCommits(gctx, repo.FullName, author)
			if err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{"repository": repo.FullName, "author": author}).Warn("skipping repository in commit count")
				return nil
			}
			mu.Lock()
			summaries = append(summaries, models.RepositoryCommitSummary{
				RepoName:    repo.FullName,
				RepoURL:     repo.HTMLURL,
				CommitCount: uint(count),
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CommitCount > summaries[j].CommitCount
	})
	return summaries
}

func (s *AggregatorService) countCommits(ctx context.Context, fullName, author string) (int, error) {
	total := 0
	err := s.pager.Offset(ctx, func(ctx context.Context, page int) (int, bool, error) {
		count, hasMore, err := s.fetcher.AuthorCommitsPage(ctx, fullName, author, page)
		if err != nil {
			return 0, false, err
		}
		total += count
		return count, !hasMore, nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
