package models

// Contributor is the raw per-repository contributor record as GitHub
// reports it; one instance per (repository, account) pair.
type Contributor struct {
	Login         string `json:"login"`
	AvatarURL     string `json:"avatar_url"`
	ProfileURL    string `json:"profile_url"`
	Contributions uint   `json:"contributions"`
}

// UserAggregate folds Contributor records for one login across every
// examined repository. Repositories keeps first-seen order and never holds
// duplicates.
type UserAggregate struct {
	Login              string   `json:"login"`
	AvatarURL          string   `json:"avatar_url"`
	ProfileURL         string   `json:"profile_url"`
	TotalContributions uint     `json:"total_contributions"`
	Repositories       []string `json:"repositories"`
}

// NewUserAggregate creates an aggregate from the first sighting of a login.
func NewUserAggregate(c Contributor, repoFullName string) *UserAggregate {
	return &UserAggregate{
		Login:              c.Login,
		AvatarURL:          c.AvatarURL,
		ProfileURL:         c.ProfileURL,
		TotalContributions: c.Contributions,
		Repositories:       []string{repoFullName},
	}
}

// Add folds another per-repository record into the aggregate.
func (a *UserAggregate) Add(c Contributor, repoFullName string) {
	a.TotalContributions += c.Contributions
	for _, name := range a.Repositories {
		if name == repoFullName {
			return
		}
	}
	a.Repositories = append(a.Repositories, repoFullName)
}

// UserMoveFilesReport is the single-developer report: commit totals across
// the account's Move-containing repositories.
type UserMoveFilesReport struct {
	Username          string                    `json:"username"`
	TotalCommits      uint                      `json:"total_commits"`
	TotalRepositories int                       `json:"total_repositories"`
	HasMoveFiles      bool                      `json:"has_move_files"`
	Repositories      []RepositoryCommitSummary `json:"repositories"`
}
