package rbac

// Role names carried in session tokens. Keep these stable; they are issued by the auth backend.
const (
	RoleAnon          = "anon"
	RoleAuthenticated = "authenticated"
	RoleServiceRole   = "service_role"
)

func IsServiceRole(role string) bool { return role == RoleServiceRole }
