package services

import (
	"context"
	"sync"

	"github.com/movelabs/movescout/internal/models"
)

// stubFetcher is a hand-rolled githubapi.Fetcher for service tests. Unset
// functions behave as empty upstream responses. Call counts are tracked so
// tests can assert how many upstream requests a stage issued.
type stubFetcher struct {
	searchFn       func(ctx context.Context, query string, page int) ([]models.RepositoryRef, error)
	ownedFn        func(ctx context.Context, login string, cursor *string) ([]models.RepositoryRef, *string, bool, error)
	treeFn         func(ctx context.Context, repo models.RepositoryRef) ([]string, error)
	contributorsFn func(ctx context.Context, fullName string, page int) ([]models.Contributor, bool, error)
	commitsFn      func(ctx context.Context, fullName, author string, page int) (int, bool, error)

	mu    sync.Mutex
	calls map[string]int
}

func (f *stubFetcher) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

func (f *stubFetcher) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *stubFetcher) SearchMoveRepositories(ctx context.Context, query string, page int) ([]models.RepositoryRef, error) {
	f.record("search")
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(ctx, query, page)
}

func (f *stubFetcher) OwnedRepositories(ctx context.Context, login string, cursor *string) ([]models.RepositoryRef, *string, bool, error) {
	f.record("owned")
	if f.ownedFn == nil {
		return nil, nil, false, nil
	}
	return f.ownedFn(ctx, login, cursor)
}

func (f *stubFetcher) ListTreePaths(ctx context.Context, repo models.RepositoryRef) ([]string, error) {
	f.record("tree")
	if f.treeFn == nil {
		return nil, nil
	}
	return f.treeFn(ctx, repo)
}

func (f *stubFetcher) ContributorsPage(ctx context.Context, fullName string, page int) ([]models.Contributor, bool, error) {
	f.record("contributors")
	if f.contributorsFn == nil {
		return nil, false, nil
	}
	return f.contributorsFn(ctx, fullName, page)
}

func (f *stubFetcher) AuthorCommitsPage(ctx context.Context, fullName, author string, page int) (int, bool, error) {
	f.record("commits")
	if f.commitsFn == nil {
		return 0, false, nil
	}
	return f.commitsFn(ctx, fullName, author, page)
}
