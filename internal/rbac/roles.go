package rbac

import "slices"

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAdmin     = "admin"
	RoleHRManager = "hr_manager"
	RoleEmployee  = "employee"
)

// Permission strings carried in access tokens.
const (
	PermLeaveRead      = "leave:read"
	PermLeaveWrite     = "leave:write"
	PermLeaveApprove   = "leave:approve"
	PermPayrollRead    = "payroll:read"
	PermPayrollWrite   = "payroll:write"
	PermDocumentsRead  = "documents:read"
	PermDocumentsWrite = "documents:write"
	PermUsersManage    = "users:manage"
	PermSessionsRevoke = "sessions:revoke"
)

func IsSuperAdmin(role string) bool { return role == RoleAdmin }

// Table is the static role -> permission fallback used when a token does
// not list a permission explicitly. It implements auth.PermissionPolicy.
type Table map[string][]string

// DefaultTable grants what each HR role needs without per-user overrides.
func DefaultTable() Table {
	return Table{
		RoleHRManager: {
			PermLeaveRead, PermLeaveWrite, PermLeaveApprove,
			PermPayrollRead, PermPayrollWrite,
			PermDocumentsRead, PermDocumentsWrite,
			PermUsersManage,
		},
		RoleEmployee: {
			PermLeaveRead, PermLeaveWrite,
			PermPayrollRead,
			PermDocumentsRead,
		},
	}
}

func (t Table) IsSuperRole(role string) bool { return IsSuperAdmin(role) }

func (t Table) Grants(role, permission string) bool {
	return slices.Contains(t[role], permission)
}
