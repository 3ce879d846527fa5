package domain

import "time"

type ReadingStatus string

const (
	ReadingStatusReading   ReadingStatus = "Reading"
	ReadingStatusCompleted ReadingStatus = "Completed"
)

func (s ReadingStatus) Valid() bool {
	return s == ReadingStatusReading || s == ReadingStatusCompleted
}

// Progress is an advisory per-user annotation on an owned book.
type Progress struct {
	UserID    string
	BookID    string
	Status    ReadingStatus
	UpdatedAt time.Time
}
