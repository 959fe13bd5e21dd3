package ensure

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nupkg-tools/ensure/registry"
)

func entry(t *testing.T, version string, listed bool) registry.VersionEntry {
	t.Helper()
	v, err := semver.NewVersion(version)
	require.NoError(t, err)
	return registry.VersionEntry{Version: v, Listed: listed}
}

func TestLatestStable_PicksMaximum(t *testing.T) {
	entries := []registry.VersionEntry{
		entry(t, "1.0.0", true),
		entry(t, "2.0.0", true),
		entry(t, "1.9.3", true),
	}

	got, err := LatestStable("X", entries)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.Version.String())
}

func TestLatestStable_OrderIndependent(t *testing.T) {
	entries := []registry.VersionEntry{
		entry(t, "3.1.4", true),
		entry(t, "0.1.0", true),
		entry(t, "3.1.3", true),
		entry(t, "2.99.99", true),
	}

	got, err := LatestStable("X", entries)
	require.NoError(t, err)

	for _, e := range entries {
		assert.False(t, e.Version.GreaterThan(got.Version),
			"resolved %s is not >= %s", got.Version, e.Version)
	}
}

func TestLatestStable_SkipsPrerelease(t *testing.T) {
	entries := []registry.VersionEntry{
		entry(t, "1.0.0", true),
		entry(t, "2.0.0", true),
		entry(t, "2.1.0-beta", true),
	}

	got, err := LatestStable("X", entries)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.Version.String())
}

func TestLatestStable_SkipsUnlisted(t *testing.T) {
	entries := []registry.VersionEntry{
		entry(t, "1.0.0", true),
		entry(t, "2.0.0", false),
	}

	got, err := LatestStable("X", entries)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", got.Version.String())
}

func TestLatestStable_NoEligibleVersion(t *testing.T) {
	tests := []struct {
		name    string
		entries []registry.VersionEntry
	}{
		{name: "empty", entries: nil},
		{
			name: "only prerelease",
			entries: []registry.VersionEntry{
				entry(t, "1.0.0-rc1", true),
				entry(t, "2.0.0-beta", true),
			},
		},
		{
			name: "only unlisted",
			entries: []registry.VersionEntry{
				entry(t, "1.0.0", false),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LatestStable("X", tt.entries)
			require.Error(t, err)

			var noEligible *ErrNoEligibleVersion
			require.ErrorAs(t, err, &noEligible)
			assert.Equal(t, "X", noEligible.ID)
		})
	}
}
