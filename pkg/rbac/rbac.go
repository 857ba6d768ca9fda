package rbac

// 角色常量
const (
	RoleEngineer      = "engineer"
	RoleSupervisor    = "supervisor"
	RoleAdministrator = "administrator"
)

// 权限常量
const (
	PermissionPhaseStart       = "phase:start"
	PermissionPhaseSubmit      = "phase:submit"
	PermissionPhaseApprove     = "phase:approve"
	PermissionPhaseComplete    = "phase:complete"
	PermissionPhaseEarlyAccess = "phase:early_access"
	PermissionPhaseWarning     = "phase:warning"
	PermissionPhaseDelay       = "phase:delay"
	PermissionPhaseEditDates   = "phase:edit_dates"

	PermissionChecklistToggle            = "checklist:toggle"
	PermissionChecklistApproveEngineer   = "checklist:approve_engineer"
	PermissionChecklistApproveSupervisor = "checklist:approve_supervisor"
	PermissionChecklistRevoke            = "checklist:revoke"
	PermissionChecklistNotes             = "checklist:notes"
	PermissionChecklistManage            = "checklist:manage"

	PermissionTimerUse = "timer:use"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleEngineer: {
		PermissionPhaseStart,
		PermissionPhaseSubmit,
		PermissionChecklistToggle,
		PermissionChecklistApproveEngineer,
		PermissionTimerUse,
	},
	RoleSupervisor: {
		PermissionPhaseStart,
		PermissionPhaseSubmit,
		PermissionPhaseApprove,
		PermissionPhaseComplete,
		PermissionPhaseEarlyAccess,
		PermissionPhaseWarning,
		PermissionPhaseDelay,
		PermissionPhaseEditDates,
		PermissionChecklistToggle,
		PermissionChecklistApproveSupervisor,
		PermissionChecklistRevoke,
		PermissionChecklistNotes,
		PermissionChecklistManage,
		PermissionTimerUse,
	},
	RoleAdministrator: {
		PermissionPhaseStart,
		PermissionPhaseSubmit,
		PermissionPhaseApprove,
		PermissionPhaseComplete,
		PermissionPhaseEarlyAccess,
		PermissionPhaseWarning,
		PermissionPhaseDelay,
		PermissionPhaseEditDates,
		PermissionChecklistToggle,
		PermissionChecklistApproveEngineer,
		PermissionChecklistApproveSupervisor,
		PermissionChecklistRevoke,
		PermissionChecklistNotes,
		PermissionChecklistManage,
		PermissionTimerUse,
	},
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// Has checks whether the given role carries the given permission.
func Has(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}
