package rbac

import "testing"

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleEngineer, RoleSupervisor, RoleAdministrator} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%q) = false, want true", role)
		}
	}
	if ValidRole("intern") {
		t.Error("ValidRole should reject unknown roles")
	}
}

func TestHas(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleEngineer, PermissionPhaseStart, true},
		{RoleEngineer, PermissionPhaseSubmit, true},
		{RoleEngineer, PermissionPhaseApprove, false},
		{RoleEngineer, PermissionPhaseComplete, false},
		{RoleEngineer, PermissionPhaseEarlyAccess, false},
		{RoleEngineer, PermissionChecklistApproveEngineer, true},
		{RoleEngineer, PermissionChecklistApproveSupervisor, false},
		{RoleEngineer, PermissionChecklistRevoke, false},
		{RoleEngineer, PermissionTimerUse, true},

		{RoleSupervisor, PermissionPhaseApprove, true},
		{RoleSupervisor, PermissionPhaseComplete, true},
		{RoleSupervisor, PermissionPhaseDelay, true},
		{RoleSupervisor, PermissionChecklistApproveSupervisor, true},
		// supervisors act on the engineer gate only through revocation
		{RoleSupervisor, PermissionChecklistApproveEngineer, false},

		{RoleAdministrator, PermissionChecklistApproveEngineer, true},
		{RoleAdministrator, PermissionChecklistApproveSupervisor, true},
		{RoleAdministrator, PermissionPhaseEditDates, true},

		{"unknown", PermissionPhaseStart, false},
	}

	for _, tt := range tests {
		if got := Has(tt.role, tt.permission); got != tt.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tt.role, tt.permission, got, tt.want)
		}
	}
}
