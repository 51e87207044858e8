package model

import "time"

// User is a person known to the system by pennkey. PennID is nil until the
// record has been backfilled from the Data Warehouse.
type User struct {
	Pennkey   string    `json:"pennkey"`
	PennID    *int64    `json:"penn_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) String() string {
	return u.FirstName + " " + u.LastName + " (" + u.Pennkey + ")"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
