package model

// MessageStatus is the lifecycle state of a message. The set is closed:
// repositories reject anything outside it.
type MessageStatus string

const (
	// StatusCreated is the row-insertion default.
	StatusCreated MessageStatus = "created"
	// StatusUpdated marks an update that carried no explicit status.
	StatusUpdated MessageStatus = "updated"
	// StatusPending marks dispatch in progress.
	StatusPending MessageStatus = "pending"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
	// StatusTimedOut is reserved; nothing transitions into it yet.
	StatusTimedOut MessageStatus = "timed_out"
	// StatusDeleted is the soft-delete marker, terminal.
	StatusDeleted MessageStatus = "deleted"
)

func (s MessageStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusUpdated, StatusPending,
		StatusSent, StatusFailed, StatusTimedOut,
		StatusDeleted:
		return true
	}
	return false
}

// Terminal reports whether the dispatch path considers the status final.
func (s MessageStatus) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}
