package entities

import "testing"

func TestRoleRanks(t *testing.T) {
	if RoleAdmin.Rank() <= RoleAnalyst.Rank() {
		t.Error("admin must outrank analyst")
	}
	if RoleAnalyst.Rank() <= RoleViewer.Rank() {
		t.Error("analyst must outrank viewer")
	}
	if Role("superuser").Rank() != 0 {
		t.Error("unknown role must rank 0")
	}
}

func TestRoleAllows(t *testing.T) {
	tests := []struct {
		holder   Role
		required Role
		want     bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleAnalyst, true},
		{RoleAdmin, RoleViewer, true},
		{RoleAnalyst, RoleAdmin, false},
		{RoleAnalyst, RoleAnalyst, true},
		{RoleAnalyst, RoleViewer, true},
		{RoleViewer, RoleAnalyst, false},
		{RoleViewer, RoleViewer, true},
		{Role(""), RoleViewer, false},
		{RoleAdmin, Role("unknown"), false},
	}

	for _, tt := range tests {
		if got := tt.holder.Allows(tt.required); got != tt.want {
			t.Errorf("%q.Allows(%q) = %v, want %v", tt.holder, tt.required, got, tt.want)
		}
	}
}

func TestUserValidate(t *testing.T) {
	u := User{Email: "admin@voicebank.dev", Role: RoleAdmin}
	if err := u.Validate(); err != nil {
		t.Errorf("valid user should not error, got: %v", err)
	}

	u.Email = ""
	if err := u.Validate(); err == nil {
		t.Error("user without email should fail validation")
	}

	u.Email = "admin@voicebank.dev"
	u.Role = "root"
	if err := u.Validate(); err == nil {
		t.Error("user with unknown role should fail validation")
	}
}
