package cloud

// State is the authentication state of a session.
type State int

const (
	Unprovisioned State = iota
	Provisioned
	ChallengeIssued
	Authenticated
)

func (s State) String() string {
	switch s {
	case Provisioned:
		return "provisioned"
	case ChallengeIssued:
		return "challenge issued"
	case Authenticated:
		return "authenticated"
	default:
		return "unprovisioned"
	}
}
