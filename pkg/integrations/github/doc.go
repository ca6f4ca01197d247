// Package github provides the GitHub gateway for the dependency crawler.
//
// # Overview
//
// [Client] talks to two hosts: the REST API (https://api.github.com) for
// organization listings, default branches and commit lookups, and the raw
// content host (https://raw.githubusercontent.com) for manifests pinned to a
// commit.
//
// # Usage
//
//	client := github.NewClient(github.Options{
//	    Token:     os.Getenv("GITHUB_TOKEN"),
//	    RateLimit: 10,
//	    Burst:     5,
//	})
//
//	repos, err := client.ListRepositories(ctx, "graasp")
//	sha, err := client.CommitHash(ctx, "graasp/core", "main")
//	data, err := client.FetchRawFile(ctx, "graasp/core", sha, "package.json")
//
// # Authentication
//
// A personal access token is optional but practically required: without one
// the API allows 60 requests per hour. With a token the limit is 5000.
//
// # Errors
//
// Commit lookups return [integrations.ErrDeadBranch] when the ref is gone and
// [integrations.ErrEmptyRepository] when the repository has no commits. Raw
// fetches return [integrations.ErrNotFound] when the file does not exist at
// that commit.
//
// # Caching
//
// Only raw files are cached. They are addressed by commit hash and therefore
// immutable. Branch heads are always looked up fresh.
package github
