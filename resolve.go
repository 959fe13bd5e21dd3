package ensure

import "github.com/nupkg-tools/ensure/registry"

// LatestStable returns the entry with the highest version among the listed,
// non-prerelease entries. It is a pure function over its input and returns
// ErrNoEligibleVersion when no entry qualifies.
func LatestStable(id string, entries []registry.VersionEntry) (registry.VersionEntry, error) {
	var best registry.VersionEntry
	found := false

	for _, e := range entries {
		if e.Version == nil || !e.Listed || e.Prerelease() {
			continue
		}
		if !found || e.Version.GreaterThan(best.Version) {
			best = e
			found = true
		}
	}

	if !found {
		return registry.VersionEntry{}, &ErrNoEligibleVersion{ID: id}
	}
	return best, nil
}
