package deps

import (
	"regexp"
	"strings"
)

// DeadPrefix marks the synthetic commit of a branch that no longer resolves.
const DeadPrefix = "[DEAD]"

var commitPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Key returns the cache key of repo at commit: the repository name without
// the organization prefix, "@", and the commit.
//
//	Key("graasp", "graasp/core", "3f2a...") == "core@3f2a..."
func Key(org, repo, commit string) string {
	if owner, name, ok := SplitRepo(repo); ok && strings.EqualFold(owner, org) {
		repo = name
	}
	return repo + "@" + commit
}

// ExternalKey returns the opaque key of a dependency that is never followed.
func ExternalKey(name, version string) string {
	return name + "@" + version
}

// DeadCommit returns the sentinel commit for a dead branch.
func DeadCommit(branch string) string {
	return DeadPrefix + branch
}

// IsDead reports whether commit is a dead-branch sentinel.
func IsDead(commit string) bool {
	return strings.HasPrefix(commit, DeadPrefix)
}

// IsCommitHash reports whether s is a full lowercase hex SHA-1.
func IsCommitHash(s string) bool {
	return commitPattern.MatchString(s)
}

// SplitKey splits a key at its last "@". The "@" of a scoped package name
// ("@scope/pkg") is never a separator.
func SplitKey(key string) (name, version string) {
	i := strings.LastIndex(key, "@")
	if i <= 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

// SplitRepo splits "owner/name".
func SplitRepo(repo string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}

// InOrg reports whether repo is owned by org. Owners compare case-insensitively.
func InOrg(org, repo string) bool {
	owner, _, ok := SplitRepo(repo)
	return ok && org != "" && strings.EqualFold(owner, org)
}
