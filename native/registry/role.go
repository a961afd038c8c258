package registry

import "fmt"

// Role enumerates the five privilege classes, each bound 1:1 to its own
// multisig wallet at bootstrap. The supervisory hierarchy runs
// SuperOwner > BasicOwner > {OperationAdmin, MintingAdmin, RedemptionAdmin}.
type Role uint8

const (
	RoleSuperOwner Role = iota
	RoleBasicOwner
	RoleOperationAdmin
	RoleMintingAdmin
	RoleRedemptionAdmin
)

// Roles lists every role in declaration order.
var Roles = []Role{RoleSuperOwner, RoleBasicOwner, RoleOperationAdmin, RoleMintingAdmin, RoleRedemptionAdmin}

// Valid reports whether the role value is within the supported range.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperOwner, RoleBasicOwner, RoleOperationAdmin, RoleMintingAdmin, RoleRedemptionAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case RoleSuperOwner:
		return "superOwner"
	case RoleBasicOwner:
		return "basicOwner"
	case RoleOperationAdmin:
		return "operationAdmin"
	case RoleMintingAdmin:
		return "mintingAdmin"
	case RoleRedemptionAdmin:
		return "redemptionAdmin"
	default:
		return "unknown"
	}
}

// ParseRole converts a configuration string into a Role.
func ParseRole(s string) (Role, error) {
	for _, role := range Roles {
		if role.String() == s {
			return role, nil
		}
	}
	return 0, fmt.Errorf("registry: unknown role %q", s)
}
