package domain

import "slices"

// Activity is a named extracurricular offering together with its roster.
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	// Participants holds unique emails in signup order.
	Participants []string
}

// HasParticipant reports whether email is already on the roster.
func (a Activity) HasParticipant(email string) bool {
	return slices.Contains(a.Participants, email)
}

// SpotsLeft returns the advisory remaining capacity. It can go negative since
// capacity is never enforced.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Clone returns a copy that shares no memory with a.
func (a Activity) Clone() Activity {
	out := a
	out.Participants = make([]string, len(a.Participants))
	copy(out.Participants, a.Participants)
	return out
}
