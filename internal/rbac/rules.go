package rbac

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// Default policy. Ownership of an assessment is checked by the handlers;
// "_own" permissions only say the role may act on what it owns.
var RolePermissions = map[string][]string{
	RoleStudent: {
		"assessment:view",
		"attempt:create",
		"attempt:submit",
		"attempt:view-own",
	},
	RoleInstructor: {
		"assessment:create",
		"assessment:view",
		"assessment:edit_own",
		"assessment:delete_own",
	},
	RoleAdmin: {
		"*", // everything
	},
}
