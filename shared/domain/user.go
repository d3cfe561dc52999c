package domain

// AnonymousDisplayName is shown for voters without a name or email.
const AnonymousDisplayName = "Anonymous User"

// User is the caller as resolved by the identity provider.
type User struct {
	Id          UserId
	DisplayName string
	Email       Email
}

// VisibleName returns the display name, falling back to email and then AnonymousDisplayName.
func (u User) VisibleName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return AnonymousDisplayName
}
