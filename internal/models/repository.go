package models

// RepositoryRef identifies one GitHub repository discovered during a run.
// Immutable once fetched; FullName ("owner/name") is the unique key.
type RepositoryRef struct {
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

// NewRepositoryRef creates a RepositoryRef, falling back to "main" when the
// upstream record carries no default branch.
func NewRepositoryRef(fullName, htmlURL, defaultBranch string) RepositoryRef {
	if defaultBranch == "" {
		defaultBranch = "main"
	}
	return RepositoryRef{
		FullName:      fullName,
		HTMLURL:       htmlURL,
		DefaultBranch: defaultBranch,
	}
}

// RepositoryCommitSummary is one row of the single-developer report: how
// many commits the target account authored in one Move-containing
// repository.
type RepositoryCommitSummary struct {
	RepoName    string `json:"repo_name"`
	RepoURL     string `json:"repo_url"`
	CommitCount uint   `json:"commit_count"`
}
