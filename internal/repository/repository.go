package repository

import "time"

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

func now() time.Time {
	return time.Now().UTC()
}
