package domain

import "time"

// UserType is the role tag cached alongside the credential token.
type UserType string

const (
	UserTypeCustomer   UserType = "customer"
	UserTypeFreelancer UserType = "freelancer"
	UserTypeSuperAdmin UserType = "superadmin"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeCustomer, UserTypeFreelancer, UserTypeSuperAdmin:
		return true
	default:
		return false
	}
}

// TerminationReason records why a session ended.
type TerminationReason string

const (
	// ReasonExplicit is a user-initiated logout.
	ReasonExplicit TerminationReason = "explicit"
	// ReasonExpired is a logout caused by the inactivity timer firing.
	ReasonExpired TerminationReason = "expired"
	// ReasonAuthLost is a logout caused by the auth state flipping to
	// unauthenticated outside of the monitor.
	ReasonAuthLost TerminationReason = "auth_lost"
)

// Session is a single authenticated client context monitored for inactivity.
type Session struct {
	ID                string            `bson:"_id"                          json:"id"`
	UserID            string            `bson:"user_id"                      json:"user_id"`
	UserType          UserType          `bson:"user_type"                    json:"user_type"`
	Slug              string            `bson:"slug,omitempty"               json:"slug,omitempty"`
	CredentialToken   string            `bson:"-"                            json:"-"`
	IsAuthenticated   bool              `bson:"is_authenticated"             json:"authenticated"`
	CreatedAt         time.Time         `bson:"created_at"                   json:"created_at"`
	LastActivityAt    time.Time         `bson:"last_activity_at,omitempty"   json:"last_activity_at,omitempty"`
	TerminatedAt      *time.Time        `bson:"terminated_at,omitempty"      json:"terminated_at,omitempty"`
	TerminationReason TerminationReason `bson:"termination_reason,omitempty" json:"termination_reason,omitempty"`
}
