package types

import "time"

// Host represents a registered account holder.
// It contains identity, credential, and profile data.
type Host struct {
	// ID is the unique identifier of the host, assigned by the store.
	// A zero ID means the host has not been persisted yet.
	ID int `json:"id" db:"id"`

	// Email is the login identifier of the host. It is unique across hosts.
	Email string `json:"email,omitempty" db:"email"`

	// PasswordHash stores the hashed representation of the host's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Name is the host's display name.
	Name string `json:"name" db:"name"`

	// Phone is a private contact number.
	Phone string `json:"phone,omitempty" db:"phone"`

	// Bio is a short public description of the host.
	Bio string `json:"bio" db:"bio"`

	// City is where the host is based.
	City string `json:"city" db:"city"`

	// AvatarKey is the object storage key of the uploaded avatar, if any.
	AvatarKey string `json:"-" db:"avatar_key"`

	// AvatarContentType is the MIME type of the uploaded avatar.
	AvatarContentType string `json:"-" db:"avatar_content_type"`

	// HasAvatar reports whether an avatar can be fetched for this host.
	HasAvatar bool `json:"has_avatar" db:"-"`

	// CreatedAt is the timestamp when the host registered.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent profile change.
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Public returns the view of the host served to other callers.
// Private contact fields and modification metadata are cleared.
func (h Host) Public() Host {
	h.Email = ""
	h.Phone = ""
	h.UpdatedAt = nil
	return h
}

// HostDraft is the registration input for a new host.
type HostDraft struct {
	// ID must be zero. A draft carrying an ID claims an existing identity
	// and is rejected.
	ID int `json:"id"`

	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Bio      string `json:"bio"`
	City     string `json:"city"`
}

// HostPatch names every mutable profile field. Fields left unset are not
// touched by an update. The host ID and credentials cannot be patched.
type HostPatch struct {
	Name  Optional[string] `json:"name"`
	Phone Optional[string] `json:"phone"`
	Bio   Optional[string] `json:"bio"`
	City  Optional[string] `json:"city"`
}

// Empty reports whether the patch changes nothing.
func (p HostPatch) Empty() bool {
	return !p.Name.Set && !p.Phone.Set && !p.Bio.Set && !p.City.Set
}

// Identity is the authenticated caller, produced by token verification.
type Identity struct {
	HostID int
}

// Credentials are used to authenticate a host.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned by a successful login.
type Session struct {
	// Token is the signed session token.
	Token string `json:"token"`

	// Host is the authenticated host's public view.
	Host Host `json:"host"`
}
