package domain

import "time"

// Book is a catalog title. Price is expressed in currency minor units.
type Book struct {
	ID         string
	Title      string
	Author     string
	CoverURL   string
	Content    string
	ContentKey string
	Price      int64
	IsPremium  bool
	Rating     float64
	Reads      int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const (
	MinRating = 0
	MaxRating = 5
)
