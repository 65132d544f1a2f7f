package domain

// Role is a capability granted to a caller. Role checks live at the top of
// each operation or handler; the accounting engines themselves never inspect
// roles so they stay testable without an access-control harness.
type Role string

const (
	// RoleAdmin configures engine parameters (limits, exemptions, grants).
	RoleAdmin Role = "admin"
	// RoleBurner may request supply burns.
	RoleBurner Role = "burner"
	// RoleOperator may schedule treasury transfers within its daily budget.
	RoleOperator Role = "operator"
	// RoleTreasury may execute scheduled treasury transfers.
	RoleTreasury Role = "treasury"
	// RoleProposer may schedule governance proposals.
	RoleProposer Role = "proposer"
	// RoleExecutor may execute governance proposals once their window opens.
	RoleExecutor Role = "executor"
	// RoleGuardian may run the emergency execution path.
	RoleGuardian Role = "guardian"
)

// Caller is the authenticated identity attached to a request.
type Caller struct {
	ID    string
	Roles []Role
}

// IsZero reports whether no caller is attached.
func (c Caller) IsZero() bool { return c.ID == "" }

// Has reports whether the caller holds the given role.
func (c Caller) Has(role Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
