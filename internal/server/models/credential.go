package models

import "time"

// Credential is a named ServiceNow connection owned by exactly one user.
// (UserID, Name) is unique. Password is stored encrypted at rest and only
// decrypted when a client is constructed.
type Credential struct {
	ID          string
	UserID      string
	Name        string
	InstanceURL string
	Username    string
	Password    string
	CreatedAt   time.Time
}

// CredentialUpdate carries a partial update. Nil pointers mean "keep the
// stored value"; an explicit empty string sets the field to empty. The
// tri-state matters for Password, where an omitted value must never wipe
// the stored secret.
type CredentialUpdate struct {
	Name        *string
	InstanceURL *string
	Username    *string
	Password    *string
}
