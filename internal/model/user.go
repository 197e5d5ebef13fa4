package model

import "time"

// Professor can control exam sessions and monitor students.
type Professor struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Student takes exams. Code is the institutional index number used to log in.
type Student struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
