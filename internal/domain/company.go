package domain

import "time"

// Company is the tenant boundary. Every aggregation view and every scheduled
// job run is scoped to one company at a time.
type Company struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// User is an internal platform user. Admins receive morning briefs, stop-work
// alerts and follow-up escalations; project managers are users referenced from
// projects.
type User struct {
	ID        string
	CompanyID string
	Name      string
	Email     string
	Phone     string
	Admin     bool
}

// Contactable reports whether the user can be reached on any channel.
func (u User) Contactable() bool {
	return u.Email != "" || u.Phone != ""
}
