// Package deps resolves the dependency graph between the repositories of a
// GitHub organization.
//
// # Overview
//
// Every repository of the organization is read at the head commit of its
// default branch. Its package.json declarations are split into
// organization-internal references (a name with the organization prefix and a
// github:<owner>/<repo>[#ref] version) and everything else. Internal
// references are resolved recursively; external ones are recorded as opaque
// name@version leaves.
//
// The result is a [Cache] mapping node keys to ordered dependency keys:
//
//	{
//	    "core@3f2a9c1e...": ["sdk@9b1d77e0...", "lodash@^4.17.21"],
//	    "sdk@9b1d77e0...":  ["uuid@^9.0.0"]
//	}
//
// # Keys
//
// A node key is the repository name without the organization prefix, "@", and
// a commit hash ([Key]). A branch that no longer resolves is recorded under a
// sentinel commit, "[DEAD]<branch>", with no dependencies and no manifest
// fetch. Repositories without commits contribute no node, and declarations
// pointing at them are dropped from their parent.
//
// # Concurrency
//
// [Crawler.Run] resolves all repositories concurrently, and [Resolver]
// resolves the internal dependencies of a manifest concurrently. A weighted
// semaphore bounds simultaneous gateway calls; it is never held while waiting
// on another resolution. Commit and default-branch lookups are shared between
// concurrent callers and made once per run.
//
// Each key is computed at most once. A resolver that needs a key another
// resolver is computing waits for it, so an entry is written only after its
// dependencies are. The exception is a dependency cycle: the cache detects that
// waiting would never end and lets the caller continue with the commit it
// already knows.
//
// # Errors
//
// Dead branches, empty repositories, missing manifests and manifests without
// a dependency section are absorbed. Any other gateway failure, and any
// manifest that is not valid JSON, aborts the crawl; [Crawler.Run] cancels
// in-flight work and returns the first error.
//
// # Usage
//
//	gw := github.NewClient(github.Options{Token: token})
//	crawler := deps.NewCrawler("graasp", gw, deps.Options{Concurrency: 8})
//	cache, stats, err := crawler.Run(ctx)
package deps
