package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/movelabs/movescout/internal/githubapi"
	"github.com/movelabs/movescout/internal/models"
	"github.com/movelabs/movescout/pkg/logger"
)

// moveSearchQueries are tried in sequence until the oversampled candidate
// budget is filled. A single extension query has been enough in practice;
// the slice exists so narrower queries can be layered on.
var moveSearchQueries = []string{
	"extension:move",
}

// RepositorySource produces the candidate repositories a pipeline run will
// examine. The two strategies, content search and per-account enumeration,
// are selected by caller intent when the source is bound.
type RepositorySource interface {
	Discover(ctx context.Context) ([]models.RepositoryRef, error)
}

// RepositorySourceFunc adapts a bound discovery call to RepositorySource.
type RepositorySourceFunc func(ctx context.Context) ([]models.RepositoryRef, error)

func (f RepositorySourceFunc) Discover(ctx context.Context) ([]models.RepositoryRef, error) {
	return f(ctx)
}

// SearchDiscoveryService discovers candidate repositories through GitHub
// code search. It oversamples: not every match survives the Move-file check
// or contributes qualifying committers, so it collects OversampleFactor
// times the requested result count before stopping.
type SearchDiscoveryService struct {
	fetcher          githubapi.Fetcher
	pager            githubapi.Pager
	oversampleFactor int
	log              *logrus.Entry
}

// NewSearchDiscoveryService creates a search-based discovery service whose
// pager waits the configured delay between search pages and requests at
// most maxPages pages per query.
func NewSearchDiscoveryService(fetcher githubapi.Fetcher, pager githubapi.Pager, maxPages, oversampleFactor int) *SearchDiscoveryService {
	pager.MaxPages = maxPages
	return &SearchDiscoveryService{
		fetcher:          fetcher,
		pager:            pager,
		oversampleFactor: oversampleFactor,
		log:              logger.WithField("component", "discovery"),
	}
}

// DiscoverByContent returns up to limit×oversample unique repositories whose
// indexed content matches a Move search query. Any search failure aborts the
// whole discovery: a partial candidate set would silently under-report.
func (s *SearchDiscoveryService) DiscoverByContent(ctx context.Context, limit int) ([]models.RepositoryRef, error) {
	budget := limit * s.oversampleFactor

	seen := make(map[string]struct{})
	var refs []models.RepositoryRef

	for _, query := range moveSearchQueries {
		s.log.WithFields(logrus.Fields{"query": query, "budget": budget}).Info("searching for Move repositories")

		err := s.pager.Offset(ctx, func(ctx context.Context, page int) (int, bool, error) {
			pageRefs, err := s.fetcher.SearchMoveRepositories(ctx, query, page)
			if err != nil {
				return 0, false, err
			}
			for _, ref := range pageRefs {
				if _, ok := seen[ref.FullName]; ok {
					continue
				}
				seen[ref.FullName] = struct{}{}
				refs = append(refs, ref)
			}
			return len(pageRefs), len(refs) >= budget, nil
		})
		if err != nil {
			return nil, err
		}

		if len(refs) >= budget {
			break
		}
	}

	s.log.WithField("repositories", len(refs)).Info("discovery complete")
	return refs, nil
}

// Source binds a content-search discovery to a result-count limit.
func (s *SearchDiscoveryService) Source(limit int) RepositorySource {
	return RepositorySourceFunc(func(ctx context.Context) ([]models.RepositoryRef, error) {
		return s.DiscoverByContent(ctx, limit)
	})
}

// AccountDiscoveryService enumerates every repository owned (not forked) by
// one named account, via full GraphQL cursor pagination. Single-account
// repository counts are small, so no early cap applies.
type AccountDiscoveryService struct {
	fetcher   githubapi.Fetcher
	pager githubapi.Pager
	log       *logrus.Entry
}

func NewAccountDiscoveryService(fetcher githubapi.Fetcher, pager githubapi.Pager) *AccountDiscoveryService {
	return &AccountDiscoveryService{
		fetcher:   fetcher,
		pager: pager,
		log:       logger.WithField("component", "discovery"),
	}
}

// DiscoverByAccount returns every repository the account owns. Failure
// aborts the enclosing request for the same reason as content search.
func (s *AccountDiscoveryService) DiscoverByAccount(ctx context.Context, login string) ([]models.RepositoryRef, error) {
	var refs []models.RepositoryRef

	err := s.pager.Cursor(ctx, func(ctx context.Context, cursor *string) (*string, bool, error) {
		repos, next, hasMore, err := s.fetcher.OwnedRepositories(ctx, login, cursor)
		if err != nil {
			return nil, false, err
		}
		refs = append(refs, repos...)
		return next, hasMore, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"login": login, "repositories": len(refs)}).Info("account repositories enumerated")
	return refs, nil
}

// Source binds a per-account discovery to a login.
func (s *AccountDiscoveryService) Source(login string) RepositorySource {
	return RepositorySourceFunc(func(ctx context.Context) ([]models.RepositoryRef, error) {
		return s.DiscoverByAccount(ctx, login)
	})
}
