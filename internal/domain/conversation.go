package domain

// Turn is one recorded message in a session's timeline (user question or
// assistant answer). Turns are immutable once appended.
type Turn struct {
	ID        TurnID
	SessionID SessionID
	Author    Role
	Text      string
	CreatedAt Timestamp
}

// Session represents one interactive analysis session: a single staged
// diagram plus the conversation about it.
type Session struct {
	ID        SessionID
	CreatedAt Timestamp
	UpdatedAt Timestamp

	// Diagram holds the session's active staged file, nil until the first
	// successful upload. A new upload replaces it; there is never more than
	// one active reference per session.
	Diagram *StagedFile
}
