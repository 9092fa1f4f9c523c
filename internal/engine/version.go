package engine

import (
	"fmt"
	"strconv"
	"strings"
)

type versionVerdict int

const (
	versionOK versionVerdict = iota
	versionWarn
	versionReject
)

type semver struct {
	major, minor, patch int
}

func parseSemver(s string) (semver, bool) {
	parts := strings.SplitN(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".", 3)
	if len(parts) != 3 {
		return semver{}, false
	}
	var v semver
	var err error
	if v.major, err = strconv.Atoi(parts[0]); err != nil {
		return semver{}, false
	}
	if v.minor, err = strconv.Atoi(parts[1]); err != nil {
		return semver{}, false
	}
	// Tolerate pre-release/build suffixes on the patch component.
	patch := parts[2]
	if i := strings.IndexAny(patch, "-+"); i >= 0 {
		patch = patch[:i]
	}
	if v.patch, err = strconv.Atoi(patch); err != nil {
		return semver{}, false
	}
	return v, true
}

// checkVersion decides whether a snapshot produced by snapVersion may be
// applied by a system running currentVersion. A snapshot with no recorded
// version is a legacy capture and is rejected outright. Unparseable version
// strings on either side do not block the restore but are flagged.
func checkVersion(currentVersion, snapVersion string) (versionVerdict, string) {
	if strings.TrimSpace(snapVersion) == "" {
		return versionReject, "snapshot has no modVersion (legacy format is incompatible)"
	}
	cur, okCur := parseSemver(currentVersion)
	snap, okSnap := parseSemver(snapVersion)
	if !okCur || !okSnap {
		return versionWarn, fmt.Sprintf("could not compare versions (current %q, snapshot %q), continuing", currentVersion, snapVersion)
	}
	if cur.major != snap.major {
		return versionReject, fmt.Sprintf("snapshot version %s is incompatible with %s (major mismatch)", snapVersion, currentVersion)
	}
	if snap.minor > cur.minor {
		return versionWarn, fmt.Sprintf("snapshot produced by newer version %s, upgrade recommended", snapVersion)
	}
	return versionOK, ""
}
