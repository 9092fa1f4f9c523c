package domain

// RaidStatus is the enumerated exit condition of a raid.
type RaidStatus string

const (
	StatusSurvived        RaidStatus = "Survived"
	StatusRunner          RaidStatus = "Runner"
	StatusLeft            RaidStatus = "Left"
	StatusKilled          RaidStatus = "Killed"
	StatusMissingInAction RaidStatus = "MissingInAction"
	StatusTransit         RaidStatus = "Transit"
)

// IsDeath reports whether an exit condition counts as a death for
// restoration purposes. This predicate is the only game-policy decision the
// engine owns; everything else about when to restore belongs to the host.
func (s RaidStatus) IsDeath() bool {
	switch s {
	case StatusKilled, StatusLeft, StatusMissingInAction:
		return true
	default:
		return false
	}
}
