package domain

// UserID is the opaque stable identifier of a device-owning account.
type UserID string
