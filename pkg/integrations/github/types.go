package github

import "github.com/matzehuels/orgdeps/pkg/integrations"

// apiRepoResponse is the subset of the repository object the crawler reads.
type apiRepoResponse struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Archived      bool   `json:"archived"`
	Fork          bool   `json:"fork"`
}

func (r apiRepoResponse) toRepository() integrations.Repository {
	return integrations.Repository{
		FullName:      r.FullName,
		DefaultBranch: r.DefaultBranch,
		Archived:      r.Archived,
		Fork:          r.Fork,
	}
}

// apiCommitResponse is the subset of the commit object the crawler reads.
type apiCommitResponse struct {
	SHA string `json:"sha"`
}
