package services

import (
	"context"
	"errors"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/movelabs/movescout/internal/githubapi"
	"github.com/movelabs/movescout/internal/models"
	"github.com/movelabs/movescout/pkg/logger"
)

// moveExtension marks Move-language source files.
const moveExtension = ".move"

// DetectorService decides whether a repository contains Move source files
// by scanning the recursive tree of its default branch. Detection is a
// best-effort filter: a missing or unreadable tree never aborts the
// pipeline, only quota exhaustion and transport failures do.
type DetectorService struct {
	fetcher     githubapi.Fetcher
	cache       *lru.Cache[string, bool]
	concurrency int
	log         *logrus.Entry
}

// NewDetectorService creates a detector whose verdicts are memoized in an
// LRU cache for the life of the process.
func NewDetectorService(fetcher githubapi.Fetcher, cacheSize, concurrency int) (*DetectorService, error) {
	cache, err := lru.New[string, bool](cacheSize)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &DetectorService{
		fetcher:     fetcher,
		cache:       cache,
		concurrency: concurrency,
		log:         logger.WithField("component", "detector"),
	}, nil
}

// HasMoveFiles reports whether any file in the repository's tree has the
// Move extension. Missing, private or otherwise unreadable trees count as
// false. The error return is reserved for rate-limit and transport
// failures, which the caller must not paper over with a negative verdict.
func (s *DetectorService) HasMoveFiles(ctx context.Context, repo models.RepositoryRef) (bool, error) {
	if verdict, ok := s.cache.Get(repo.FullName); ok {
		return verdict, nil
	}

	paths, err := s.fetcher.ListTreePaths(ctx, repo)
	if err != nil {
		return false, s.classifyTreeFailure(repo, err)
	}

	verdict := false
	for _, p := range paths {
		if strings.HasSuffix(p, moveExtension) {
			verdict = true
			break
		}
	}

	s.cache.Add(repo.FullName, verdict)
	return verdict, nil
}

// classifyTreeFailure turns per-repository lookup failures into negative
// verdicts and keeps only the failures the whole stage must stop for.
func (s *DetectorService) classifyTreeFailure(repo models.RepositoryRef, err error) error {
	if githubapi.IsRateLimited(err) {
		return err
	}

	var upstreamErr *githubapi.UpstreamError
	var malformedErr *githubapi.MalformedResponseError
	switch {
	case githubapi.IsNotFound(err):
		// A definitive negative, safe to memoize.
		s.cache.Add(repo.FullName, false)
	case errors.As(err, &upstreamErr), errors.As(err, &malformedErr):
		// Inconclusive tree; stays uncached in case it recovers.
	default:
		// Transport failure.
		return err
	}

	s.log.WithError(err).WithField("repository", repo.FullName).Warn("tree lookup failed, treating as no Move files")
	return nil
}

// FilterMoveRepositories returns the subset of repos that contain Move
// files, preserving input order. Trees are fetched by a bounded worker pool
// sharing the fetcher's rate-limit discipline.
func (s *DetectorService) FilterMoveRepositories(ctx context.Context, repos []models.RepositoryRef) ([]models.RepositoryRef, error) {
	verdicts := make([]bool, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, repo := range repos {
		i, repo := i, repo
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			verdict, err := s.HasMoveFiles(gctx, repo)
			if err != nil {
				return err
			}
			verdicts[i] = verdict
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	filtered := make([]models.RepositoryRef, 0, len(repos))
	for i, repo := range repos {
		if verdicts[i] {
			filtered = append(filtered, repo)
		}
	}

	s.log.WithFields(logrus.Fields{"candidates": len(repos), "with_move_files": len(filtered)}).Info("Move-file detection complete")
	return filtered, nil
}
