package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movelabs/movescout/internal/githubapi"
	"github.com/movelabs/movescout/internal/models"
)

func newReportService(t *testing.T, fetcher githubapi.Fetcher) *ReportService {
	t.Helper()

	search := NewSearchDiscoveryService(fetcher, githubapi.Pager{}, 10, 3)
	account := NewAccountDiscoveryService(fetcher, githubapi.Pager{})
	detector, err := NewDetectorService(fetcher, 64, 2)
	require.NoError(t, err)
	aggregator := NewAggregatorService(fetcher, githubapi.Pager{}, 2)

	return NewReportService(search, account, detector, aggregator, 2, time.Minute)
}

// moveTree marks which repositories contain Move files.
func moveTree(moveRepos map[string]bool) func(ctx context.Context, repo models.RepositoryRef) ([]string, error) {
	return func(ctx context.Context, repo models.RepositoryRef) ([]string, error) {
		if moveRepos[repo.FullName] {
			return []string{"sources/main.move"}, nil
		}
		return []string{"README.md"}, nil
	}
}

func TestTopMoveUsersAggregatesAcrossRepositories(t *testing.T) {
	repos := []models.RepositoryRef{
		models.NewRepositoryRef("org/repo-a", "https://github.com/org/repo-a", "main"),
		models.NewRepositoryRef("org/repo-b", "https://github.com/org/repo-b", "main"),
	}
	contributions := map[string]uint{"org/repo-a": 5, "org/repo-b": 3}

	fetcher := &stubFetcher{
		searchFn: func(ctx context.Context, query string, page int) ([]models.RepositoryRef, error) {
			if page == 1 {
				return repos, nil
			}
			return nil, nil
		},
		treeFn: moveTree(map[string]bool{"org/repo-a": true, "org/repo-b": true}),
		contributorsFn: func(ctx context.Context, fullName string, page int) ([]models.Contributor, bool, error) {
			return []models.Contributor{{Login: "alice", Contributions: contributions[fullName]}}, false, nil
		},
	}

	users, err := newReportService(t, fetcher).TopMoveUsers(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Login)
	assert.Equal(t, uint(8), users[0].TotalContributions)
	assert.ElementsMatch(t, []string{"org/repo-a", "org/repo-b"}, users[0].Repositories)
}

func TestTopMoveUsersReturnsFewerThanLimit(t *testing.T) {
	fetcher := &stubFetcher{
		searchFn: func(ctx context.Context, query string, page int) ([]models.RepositoryRef, error) {
			if page == 1 {
				return []models.RepositoryRef{models.NewRepositoryRef("org/only", "", "main")}, nil
			}
			return nil, nil
		},
		treeFn: moveTree(map[string]bool{"org/only": true}),
		contributorsFn: func(ctx context.Context, fullName string, page int) ([]models.Contributor, bool, error) {
			return []models.Contributor{{Login: "solo", Contributions: 1}}, false, nil
		},
	}

	users, err := newReportService(t, fetcher).TopMoveUsers(context.Background(), 2)
	require.NoError(t, err)

	assert.Len(t, users, 1, "one unique contributor yields one aggregate, not two")
}

func TestTopMoveUsersExcludesRepositoriesWithoutMoveFiles(t *testing.T) {
	fetcher := &stubFetcher{
		searchFn: func(ctx context.Context, query string, page int) ([]models.RepositoryRef, error) {
			if page == 1 {
				return []models.RepositoryRef{
					models.NewRepositoryRef("org/move", "", "main"),
					models.NewRepositoryRef("org/stale-index", "", "main"),
				}, nil
			}
			return nil, nil
		},
		treeFn: moveTree(map[string]bool{"org/move": true}),
		contributorsFn: func(ctx context.Context, fullName string, page int) ([]models.Contributor, bool, error) {
			return []models.Contributor{{Login: "alice", Contributions: 2}}, false, nil
		},
	}

	users, err := newReportService(t, fetcher).TopMoveUsers(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, []string{"org/move"}, users[0].Repositories)
}

func TestTopMoveUsersAbortsWhenDiscoveryFails(t *testing.T) {
	fetcher := &stubFetcher{
		searchFn: func(ctx context.Context, query string, page int) ([]models.RepositoryRef, error) {
			return nil, &githubapi.RateLimitedError{RetryAfter: time.Minute}
		},
	}

	_, err := newReportService(t, fetcher).TopMoveUsers(context.Background(), 10)
	assert.True(t, githubapi.IsRateLimited(err))
}

func TestUserMoveReportCoversOnlyMoveRepositories(t *testing.T) {
	owned := []models.RepositoryRef{
		models.NewRepositoryRef("alice/move-lib", "https://github.com/alice/move-lib", "main"),
		models.NewRepositoryRef("alice/dotfiles", "", "main"),
		models.NewRepositoryRef("alice/blog", "", "main"),
	}

	fetcher := &stubFetcher{
		ownedFn: func(ctx context.Context, login string, cursor *string) ([]models.RepositoryRef, *string, bool, error) {
			return owned, nil, false, nil
		},
		treeFn: moveTree(map[string]bool{"alice/move-lib": true}),
		commitsFn: func(ctx context.Context, fullName, author string, page int) (int, bool, error) {
			require.Equal(t, "alice/move-lib", fullName, "commits are only listed for Move repositories")
			require.Equal(t, "alice", author)
			return 4, false, nil
		},
	}

	report, err := newReportService(t, fetcher).UserMoveReport(context.Background(), "alice")
	require.NoError(t, err)

	assert.True(t, report.HasMoveFiles)
	assert.Equal(t, 1, report.TotalRepositories)
	assert.Equal(t, uint(4), report.TotalCommits)
	require.Len(t, report.Repositories, 1)
	assert.Equal(t, "alice/move-lib", report.Repositories[0].RepoName)
}

func TestUserMoveReportWithoutMoveFiles(t *testing.T) {
	fetcher := &stubFetcher{
		ownedFn: func(ctx context.Context, login string, cursor *string) ([]models.RepositoryRef, *string, bool, error) {
			return []models.RepositoryRef{models.NewRepositoryRef("bob/blog", "", "main")}, nil, false, nil
		},
		treeFn: moveTree(nil),
	}

	report, err := newReportService(t, fetcher).UserMoveReport(context.Background(), "bob")
	require.NoError(t, err)

	assert.False(t, report.HasMoveFiles)
	assert.Zero(t, report.TotalCommits)
	assert.Zero(t, report.TotalRepositories)
	assert.Empty(t, report.Repositories)
}

func TestTopMoveUsersAppliesScanCap(t *testing.T) {
	discovered := searchPage("org", 1, 12)

	fetcher := &stubFetcher{
		searchFn: func(ctx context.Context, query string, page int) ([]models.RepositoryRef, error) {
			if page == 1 {
				return discovered, nil
			}
			return nil, nil
		},
		treeFn: moveTree(nil),
	}

	_, err := newReportService(t, fetcher).TopMoveUsers(context.Background(), 3)
	require.NoError(t, err)

	// Scan factor 2 caps tree inspection at 3×2=6 repositories.
	assert.Equal(t, 6, fetcher.callCount("tree"))
}
