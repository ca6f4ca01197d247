// Package pkg provides the libraries behind orgdeps, which maps package.json
// dependencies across the repositories of a GitHub organization.
//
// # Overview
//
// orgdeps lists every repository of an organization, reads package.json at the
// head of each default branch and follows dependencies declared as
// github:<org>/<repo>[#ref]. The result is a graph of repository@commit nodes.
// The pkg directory is organized as:
//
//  1. [deps] - Resolution (crawler, resolver, dependency cache, manifest parsing)
//  2. [integrations] - GitHub API client with retries, rate limiting and caching
//  3. [graph] - Node-link graph materialized from a dependency cache
//  4. [storage] - Crawl artifacts and snapshots (JSON file, MongoDB)
//  5. [render/nodelink] - Graphviz DOT and SVG output
//
// # Architecture
//
// The data flow of a crawl:
//
//	GitHub organization
//	         ↓
//	    [integrations/github] (list repositories, commits, raw manifests)
//	         ↓
//	    [deps] package (resolve into a dependency cache)
//	         ↓
//	    [storage] package (artifact file, snapshot collection)
//	         ↓
//	    [graph] + [render/nodelink] (JSON, DOT, SVG)
//
// # Quick Start
//
// Crawl an organization and materialize its internal graph:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/orgdeps/pkg/deps"
//	    "github.com/matzehuels/orgdeps/pkg/graph"
//	    "github.com/matzehuels/orgdeps/pkg/integrations/github"
//	)
//
//	gw := github.NewClient(github.Options{Token: token, RateLimit: 10, Burst: 10})
//	cache, stats, err := deps.NewCrawler("graasp", gw, deps.Options{}).Run(ctx)
//	if err != nil {
//	    // cache still holds the entries completed before the failure
//	}
//	g := graph.FromCache(cache.Entries(), "graasp", graph.DisplayInternal)
//
// # Supporting Packages
//
// [cache] - Response caches keyed by string: file, Redis and null backends,
// plus a prefixing wrapper. Raw manifests are pinned to a commit, so cached
// copies never go stale.
//
// [httputil] - Retry with exponential backoff for errors marked retryable.
//
// [observability] - Hooks for crawl progress and HTTP traffic. Nil hooks are
// no-ops.
//
// [errors] - Coded errors for the CLI and the HTTP API.
//
// [buildinfo] - Version information set at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./...                  # All tests
//	go test ./pkg/deps/...         # Specific package
//	go test -race ./pkg/deps/...   # The resolver is concurrent
//
// [deps]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/deps
// [integrations]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/integrations
// [integrations/github]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/integrations/github
// [graph]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/graph
// [storage]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/storage
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/orgdeps/pkg/buildinfo
package pkg
