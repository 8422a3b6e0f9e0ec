package domain

// SessionStatus represents the state of a learning session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusAbandoned SessionStatus = "ABANDONED"
)

func (s SessionStatus) String() string { return string(s) }

func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusActive, SessionStatusCompleted, SessionStatusAbandoned:
		return true
	}
	return false
}

// IsTerminal returns true for states a session can never leave.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAbandoned
}

// DeckStatus classifies a deck by how many of its cards are due.
type DeckStatus string

const (
	// DeckStatusLearned: no cards due (UI color green).
	DeckStatusLearned DeckStatus = "LEARNED"
	// DeckStatusDueSoon: 1-5 cards due (yellow).
	DeckStatusDueSoon DeckStatus = "DUE_SOON"
	// DeckStatusOverdue: more than 5 cards due (red).
	DeckStatusOverdue DeckStatus = "OVERDUE"
)

func (s DeckStatus) String() string { return string(s) }

// dueSoonThreshold is the canonical boundary between DUE_SOON and OVERDUE.
const dueSoonThreshold = 5

// DeckStatusFor classifies a deck by its due-card count.
func DeckStatusFor(dueCount int) DeckStatus {
	switch {
	case dueCount == 0:
		return DeckStatusLearned
	case dueCount <= dueSoonThreshold:
		return DeckStatusDueSoon
	default:
		return DeckStatusOverdue
	}
}

// DifficultyLabel is the user-facing difficulty classification of a card.
// Labels are German, matching the product UI.
type DifficultyLabel string

const (
	DifficultyEasy   DifficultyLabel = "Einfach"
	DifficultyMedium DifficultyLabel = "Mittel"
	DifficultyHard   DifficultyLabel = "Schwer"
)

func (d DifficultyLabel) String() string { return string(d) }

// DifficultyFor maps an ease factor to its difficulty label.
// Total over the whole float domain; bands do not overlap:
// ease >= 3.0 is easy, ease >= 2.0 is medium, everything below is hard.
func DifficultyFor(easeFactor float64) DifficultyLabel {
	switch {
	case easeFactor >= 3.0:
		return DifficultyEasy
	case easeFactor >= 2.0:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// UserRole represents the authorization level of a user.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleUser, UserRoleAdmin:
		return true
	}
	return false
}

func (r UserRole) IsAdmin() bool {
	return r == UserRoleAdmin
}
