package models

import "time"

// Topic groups notes, typically one per course
type Topic struct {
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	Deadline  *time.Time `db:"deadline"`
	CreatedAt time.Time  `db:"created_at"`
}
