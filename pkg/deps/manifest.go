package deps

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Declaration is one entry of a manifest dependency section.
type Declaration struct {
	Name    string // Package name, e.g. "@graasp/sdk"
	Version string // Raw version specifier, e.g. "github:graasp/sdk#main"
}

// Reference is the target of an organization-internal declaration.
type Reference struct {
	Repo   string // "owner/name"
	Branch string // Empty means the default branch
}

// githubSpec matches "github:<owner>/<repo>[.git][#<ref>]".
var githubSpec = regexp.MustCompile(`^github:([A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+?)(?:\.git)?(?:#(.+))?$`)

// ParseGitHubSpec extracts the repository and optional ref of a
// "github:" version specifier.
func ParseGitHubSpec(version string) (Reference, bool) {
	m := githubSpec.FindStringSubmatch(strings.TrimSpace(version))
	if m == nil {
		return Reference{}, false
	}
	return Reference{Repo: m[1], Branch: m[2]}, true
}

// Classify decides whether d is organization-internal. A declaration is
// internal when its name carries the organization prefix (plain or scoped)
// and its version is a github: reference into the organization. A github:
// reference that leaves the organization is a resolution boundary and is
// classified as external.
func Classify(org string, d Declaration) (Reference, bool) {
	if !hasOrgPrefix(org, d.Name) {
		return Reference{}, false
	}
	ref, ok := ParseGitHubSpec(d.Version)
	if !ok || !InOrg(org, ref.Repo) {
		return Reference{}, false
	}
	return ref, true
}

func hasOrgPrefix(org, name string) bool {
	return org != "" && (strings.HasPrefix(name, org) || strings.HasPrefix(name, "@"+org))
}

// errInvalidManifest is wrapped into every manifest decoding error.
var errInvalidManifest = errors.New("invalid manifest")

// ParseManifest returns the declarations of the given sections of a
// package.json document, in section order and declaration order within each
// section. A name declared in several sections is kept at its first
// occurrence. Missing or null sections contribute nothing.
func ParseManifest(data []byte, sections []string) ([]Declaration, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	want := make(map[string]int, len(sections))
	for i, s := range sections {
		want[s] = i
	}
	found := make([][]Declaration, len(sections))

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidManifest, err)
		}
		key, _ := tok.(string)
		idx, ok := want[key]
		if !ok {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("%w: %v", errInvalidManifest, err)
			}
			continue
		}
		decls, err := decodeSection(dec, key)
		if err != nil {
			return nil, err
		}
		found[idx] = decls
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", errInvalidManifest)
	}

	seen := make(map[string]bool)
	var out []Declaration
	for _, decls := range found {
		for _, d := range decls {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			out = append(out, d)
		}
	}
	return out, nil
}

// decodeSection reads one name → version object. A repeated name keeps its
// first position and its last value.
func decodeSection(dec *json.Decoder, section string) ([]Declaration, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errInvalidManifest, section, err)
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: %s must be an object", errInvalidManifest, section)
	}

	var decls []Declaration
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errInvalidManifest, section, err)
		}
		name, _ := tok.(string)

		var version any
		if err := dec.Decode(&version); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errInvalidManifest, section, err)
		}
		v, ok := version.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s: version must be a string", errInvalidManifest, section, name)
		}

		if i, dup := index[name]; dup {
			decls[i].Version = v
			continue
		}
		index[name] = len(decls)
		decls = append(decls, Declaration{Name: name, Version: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errInvalidManifest, section, err)
	}
	return decls, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidManifest, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q", errInvalidManifest, want)
	}
	return nil
}
