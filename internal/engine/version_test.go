package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckVersion(t *testing.T) {
	cases := []struct {
		name    string
		current string
		snap    string
		want    versionVerdict
		msgPart string
	}{
		{"equal", "1.4.2", "1.4.2", versionOK, ""},
		{"older minor accepted silently", "1.4.2", "1.2.0", versionOK, ""},
		{"older patch", "1.4.2", "1.4.0", versionOK, ""},
		{"newer minor warns", "1.4.2", "1.6.0", versionWarn, "upgrade recommended"},
		{"major mismatch rejected", "1.4.2", "2.0.0", versionReject, "incompatible"},
		{"major behind rejected", "2.0.0", "1.9.9", versionReject, "incompatible"},
		{"legacy missing version rejected", "1.4.2", "", versionReject, "legacy"},
		{"unparseable snapshot tolerated", "1.4.2", "banana", versionWarn, "could not compare"},
		{"unparseable current tolerated", "dev", "1.4.2", versionWarn, "could not compare"},
		{"v prefix", "1.4.2", "v1.4.2", versionOK, ""},
		{"prerelease suffix", "1.4.2", "1.4.2-rc.1", versionOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict, msg := checkVersion(tc.current, tc.snap)
			require.Equal(t, tc.want, verdict)
			if tc.msgPart != "" {
				require.Contains(t, msg, tc.msgPart)
			}
		})
	}
}

func TestParseSemver(t *testing.T) {
	v, ok := parseSemver("10.2.33")
	require.True(t, ok)
	require.Equal(t, semver{10, 2, 33}, v)

	for _, bad := range []string{"", "1", "1.2", "a.b.c", "1..2"} {
		_, ok := parseSemver(bad)
		require.False(t, ok, "input %q", bad)
	}
}
