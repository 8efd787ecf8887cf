package roles

// Role is a named group of users. Exactly one role id is treated as the
// administrator role by the authorization policy.
type Role struct {
	ID   int64
	Name string
}
