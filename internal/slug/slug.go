// Package slug generates the content-derived identities used across the
// pipeline: per-article slugs and per-cluster news IDs.
package slug

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	// wordCount is the number of title words included in a slug.
	wordCount = 4
	// hashLength is the hex length of the slug hash suffix.
	hashLength = 8
	// clusterHashLength is the hex length of a cluster news ID.
	clusterHashLength = 12
	// maxProbes bounds the _1.._9 collision suffixes tried before giving up.
	maxProbes = 9

	clusterPrefix = "news-"
)

// ErrCollisionExhausted is returned when a title's base slug and all nine
// suffixed variants are already taken. Fatal for that article only; the
// caller keeps processing the rest of the batch.
var ErrCollisionExhausted = errors.New("slug: collision suffixes exhausted")

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	dashes     = regexp.MustCompile(`-+`)
)

// Generate returns a unique slug of the form {first-4-words}-{sha256[:8]}.
// The word part comes from the normalized title; the hash is computed over
// the original, un-normalized title so near-identical titles still diverge.
// Collisions against existing are resolved by probing base_1..base_9.
func Generate(title string, existing map[string]struct{}) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(title))
	normalized = nonWord.ReplaceAllString(normalized, "")
	normalized = whitespace.ReplaceAllString(normalized, " ")
	normalized = dashes.ReplaceAllString(normalized, "-")

	words := strings.Fields(normalized)
	if len(words) > wordCount {
		words = words[:wordCount]
	}
	wordPart := strings.Join(words, "-")

	sum := sha256.Sum256([]byte(strings.TrimSpace(title)))
	base := wordPart + "-" + fmt.Sprintf("%x", sum)[:hashLength]

	if _, taken := existing[base]; !taken {
		return base, nil
	}
	for i := 1; i <= maxProbes; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrCollisionExhausted, title)
}

// IsSuffixed reports whether s carries a collision suffix (_1.._9).
func IsSuffixed(s string) bool {
	n := len(s)
	return n >= 2 && s[n-2] == '_' && s[n-1] >= '1' && s[n-1] <= '9'
}

// ClusterID derives a deterministic news ID from a cluster title and its
// member slugs. Member order is irrelevant: slugs are sorted before hashing,
// so re-generating the ID for the same cluster always yields the same value.
func ClusterID(title string, memberSlugs []string) string {
	sorted := make([]string, len(memberSlugs))
	copy(sorted, memberSlugs)
	sort.Strings(sorted)

	content := title + ":" + strings.Join(sorted, "|")
	sum := sha256.Sum256([]byte(content))
	return clusterPrefix + fmt.Sprintf("%x", sum)[:clusterHashLength]
}

// ContentHash hashes the given fields (lowercased, trimmed, empty fields
// dropped) into a single sha256 hex digest for exact-duplicate detection.
func ContentHash(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			parts = append(parts, f)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", sum)
}

// NormalizeURL strips scheme, www prefix, query, fragment and trailing
// slashes so that trivially different URLs compare equal.
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(u, scheme) {
			u = u[len(scheme):]
			break
		}
	}
	u = strings.TrimPrefix(u, "www.")
	if i := strings.Index(u, "#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.Index(u, "?"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}
