package models

import "time"

type User struct {
	ID         int       `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username,omitempty"`
	Password   string    `json:"-"` // bcrypt hash
	Experience int       `json:"experience"`
	Level      int       `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
}
