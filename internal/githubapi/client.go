package githubapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v57/github"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/movelabs/movescout/internal/models"
	"github.com/movelabs/movescout/pkg/logger"
	"github.com/movelabs/movescout/pkg/ratelimit"
)

const (
	userAgent     = "movescout"
	searchPerPage = 100
	listPerPage   = 100
)

// Fetcher is the outbound surface the pipeline stages depend on. Every
// method issues exactly one upstream call, throttled by the shared limiter
// and classified into the package's error kinds.
type Fetcher interface {
	// SearchMoveRepositories returns the repositories referenced by one
	// page of code-search matches for the query.
	SearchMoveRepositories(ctx context.Context, query string, page int) ([]models.RepositoryRef, error)
	// OwnedRepositories returns one cursor page of the account's owned,
	// non-fork repositories.
	OwnedRepositories(ctx context.Context, login string, cursor *string) (repos []models.RepositoryRef, next *string, hasMore bool, err error)
	// ListTreePaths returns every path in the recursive tree of the
	// repository's default branch.
	ListTreePaths(ctx context.Context, repo models.RepositoryRef) ([]string, error)
	// ContributorsPage returns one page of the repository's contributor
	// listing and whether more pages follow.
	ContributorsPage(ctx context.Context, fullName string, page int) (contributors []models.Contributor, hasMore bool, err error)
	// AuthorCommitsPage returns the number of commits on one page of the
	// author-filtered commit listing and whether more pages follow.
	AuthorCommitsPage(ctx context.Context, fullName, author string, page int) (count int, hasMore bool, err error)
}

// Client implements Fetcher against the real GitHub REST and GraphQL
// endpoints.
type Client struct {
	rest    *github.Client
	graphql *githubv4.Client
	limiter *ratelimit.Limiter
	log     *logrus.Entry
}

// New creates a Client authenticated with the bearer token. The transport
// stacks the secondary-rate-limit waiter under the oauth2 layer, so abuse
// cooldowns reported by GitHub are honored below the token bucket.
func New(token string, limiter *ratelimit.Limiter, timeout time.Duration) (*Client, error) {
	waiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(time.Hour, nil))
	if err != nil {
		return nil, err
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Base:   waiter,
			Source: ts,
		},
	}

	rest := github.NewClient(httpClient)
	rest.UserAgent = userAgent

	return &Client{
		rest:    rest,
		graphql: githubv4.NewClient(httpClient),
		limiter: limiter,
		log:     logger.WithField("component", "githubapi"),
	}, nil
}

// NewFromClients wires a Client around pre-built API clients. Used by tests
// to point the Client at a local server.
func NewFromClients(rest *github.Client, graphql *githubv4.Client, limiter *ratelimit.Limiter) *Client {
	return &Client{
		rest:    rest,
		graphql: graphql,
		limiter: limiter,
		log:     logger.WithField("component", "githubapi"),
	}
}

// wait refuses to issue a call while the tracked quota is exhausted, then
// blocks on the class token bucket.
func (c *Client) wait(ctx context.Context, class ratelimit.Class) error {
	if retryAfter, exhausted := c.limiter.Exhausted(class); exhausted {
		return &RateLimitedError{RetryAfter: retryAfter}
	}
	return c.limiter.Wait(ctx, class)
}

func (c *Client) observe(class ratelimit.Class, resp *github.Response) {
	if resp == nil {
		return
	}
	c.limiter.Observe(class, resp.Rate.Remaining, resp.Rate.Reset.Time)
}

func (c *Client) SearchMoveRepositories(ctx context.Context, query string, page int) ([]models.RepositoryRef, error) {
	if err := c.wait(ctx, ratelimit.Search); err != nil {
		return nil, err
	}

	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: searchPerPage, Page: page},
	}
	result, resp, err := c.rest.Search.Code(ctx, query, opts)
	c.observe(ratelimit.Search, resp)
	if err != nil {
		return nil, classify("code search", err)
	}

	refs := make([]models.RepositoryRef, 0, len(result.CodeResults))
	for _, item := range result.CodeResults {
		repo := item.GetRepository()
		if repo == nil || repo.GetFullName() == "" {
			continue
		}
		refs = append(refs, models.NewRepositoryRef(
			repo.GetFullName(),
			repo.GetHTMLURL(),
			repo.GetDefaultBranch(),
		))
	}
	return refs, nil
}

// ownedRepositoriesQuery enumerates an account's owned, non-fork
// repositories through the GraphQL search connection.
type ownedRepositoriesQuery struct {
	User struct {
		Repositories struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				NameWithOwner    string
				URL              githubv4.URI
				DefaultBranchRef struct {
					Name string
				}
			}
		} `graphql:"repositories(first: 100, after: $cursor, ownerAffiliations: [OWNER], isFork: false)"`
	} `graphql:"user(login: $login)"`
}

func (c *Client) OwnedRepositories(ctx context.Context, login string, cursor *string) ([]models.RepositoryRef, *string, bool, error) {
	if err := c.wait(ctx, ratelimit.GraphQL); err != nil {
		return nil, nil, false, err
	}

	variables := map[string]interface{}{
		"login":  githubv4.String(login),
		"cursor": (*githubv4.String)(nil),
	}
	if cursor != nil {
		variables["cursor"] = githubv4.NewString(githubv4.String(*cursor))
	}

	var q ownedRepositoriesQuery
	if err := c.graphql.Query(ctx, &q, variables); err != nil {
		return nil, nil, false, classify("repository enumeration for "+login, err)
	}

	repos := make([]models.RepositoryRef, 0, len(q.User.Repositories.Nodes))
	for _, node := range q.User.Repositories.Nodes {
		if node.NameWithOwner == "" {
			continue
		}
		htmlURL := ""
		if node.URL.URL != nil {
			htmlURL = node.URL.String()
		}
		repos = append(repos, models.NewRepositoryRef(
			node.NameWithOwner,
			htmlURL,
			node.DefaultBranchRef.Name,
		))
	}

	next := string(q.User.Repositories.PageInfo.EndCursor)
	return repos, &next, q.User.Repositories.PageInfo.HasNextPage, nil
}

func (c *Client) ListTreePaths(ctx context.Context, repo models.RepositoryRef) ([]string, error) {
	owner, name, err := splitFullName(repo.FullName)
	if err != nil {
		return nil, err
	}

	if err := c.wait(ctx, ratelimit.Core); err != nil {
		return nil, err
	}

	tree, resp, err := c.rest.Git.GetTree(ctx, owner, name, repo.DefaultBranch, true)
	c.observe(ratelimit.Core, resp)
	if err != nil {
		return nil, classify("tree of "+repo.FullName, err)
	}

	paths := make([]string, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if p := entry.GetPath(); p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (c *Client) ContributorsPage(ctx context.Context, fullName string, page int) ([]models.Contributor, bool, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, false, err
	}

	if err := c.wait(ctx, ratelimit.Core); err != nil {
		return nil, false, err
	}

	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: listPerPage, Page: page},
	}
	raw, resp, err := c.rest.Repositories.ListContributors(ctx, owner, name, opts)
	c.observe(ratelimit.Core, resp)
	if err != nil {
		return nil, false, classify("contributors of "+fullName, err)
	}

	contributors := make([]models.Contributor, 0, len(raw))
	for _, rc := range raw {
		if rc.GetLogin() == "" {
			continue
		}
		contributors = append(contributors, models.Contributor{
			Login:         rc.GetLogin(),
			AvatarURL:     rc.GetAvatarURL(),
			ProfileURL:    rc.GetHTMLURL(),
			Contributions: uint(rc.GetContributions()),
		})
	}
	return contributors, resp.NextPage != 0, nil
}

func (c *Client) AuthorCommitsPage(ctx context.Context, fullName, author string, page int) (int, bool, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return 0, false, err
	}

	if err := c.wait(ctx, ratelimit.Core); err != nil {
		return 0, false, err
	}

	opts := &github.CommitsListOptions{
		Author:      author,
		ListOptions: github.ListOptions{PerPage: listPerPage, Page: page},
	}
	commits, resp, err := c.rest.Repositories.ListCommits(ctx, owner, name, opts)
	c.observe(ratelimit.Core, resp)
	if err != nil {
		return 0, false, classify("commits of "+fullName, err)
	}

	return len(commits), resp.NextPage != 0, nil
}

func splitFullName(fullName string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" {
		return "", "", &MalformedResponseError{Reason: "repository full name " + fullName}
	}
	return owner, name, nil
}
