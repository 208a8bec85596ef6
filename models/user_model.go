package models

type User struct {
	ID           string `json:"id" bson:"_id,omitempty"`
	PublicID     string `json:"public_id" bson:"public_id"`
	Username     string `json:"username" bson:"username"`
	Email        string `json:"email" bson:"email"`
	PasswordHash string `json:"-" bson:"password_hash"`
}

// ProviderKind names the way an identity was established.
type ProviderKind string

const (
	// ProviderPassword signs in with a username and password held by this service.
	ProviderPassword ProviderKind = "password"
	// ProviderToken signs in with a token minted by the federated identity provider.
	ProviderToken ProviderKind = "token"
)

// Identity is the signed-in user's handle. A nil *Identity means signed out.
type Identity struct {
	UserID   string       `json:"user_id"`
	Username string       `json:"username,omitempty"`
	Provider ProviderKind `json:"provider"`
}

// SameUser reports whether a and b refer to the same signed-in user. Two
// absent identities are the same.
func SameUser(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UserID == b.UserID
}
