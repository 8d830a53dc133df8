package domain

import "time"

// User is an identity that creates tasks and receives assignments.
// Token issuance happens outside this service; the token column only backs
// bearer authentication.
type User struct {
	ID        string
	Name      string
	Email     string
	Token     string
	CreatedAt time.Time
}
