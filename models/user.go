package models

// UserRole defines the roles the order API cares about. User accounts and
// login live in a separate auth service; only the JWT claims reach us.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleOwner    UserRole = "owner"
	RoleAdmin    UserRole = "admin"
)
