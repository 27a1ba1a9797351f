package model

// Role is the portal role of an authenticated user.
type Role string

const (
	RoleStudent Role = "student"
	RoleHR      Role = "hr"
	RoleOffice  Role = "office"
)

// User is the authenticated portal profile supplied by the identity
// endpoint.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	// PendingEmail is an email change the user has requested but not yet
	// confirmed. Empty when no change is pending.
	PendingEmail string `json:"pendingEmail,omitempty"`

	Role Role `json:"role"`
}

// ApplicationStatus is the lifecycle state of a scholarship or
// internship application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is a single application record owned by the current user.
type Application struct {
	ID      string            `json:"id"`
	Program string            `json:"program"`
	Status  ApplicationStatus `json:"status"`
}
