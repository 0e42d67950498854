package models

import "time"

// Upvote is one user's endorsement of one note. (user_id, note_id) is unique.
type Upvote struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	NoteID    int64     `db:"note_id"`
	CreatedAt time.Time `db:"created_at"`
}

// UpvoteResult reports the outcome of an upvote attempt
type UpvoteResult struct {
	UpvoteCount    int
	AlreadyUpvoted bool
}
