package accounts

import "context"

// Capabilities are named permission grants checked before privileged actions.
const (
	CapabilityMasquerade  = "accounts.masquerade"
	CapabilityManageUsers = "accounts.manage_users"
)

// CapabilityChecker answers whether a user holds a capability.
type CapabilityChecker interface {
	HasCapability(ctx context.Context, user *User, capability string) (bool, error)
}

// GrantChecker resolves capabilities from explicit grants. Superusers hold
// every capability implicitly; staff and regular users need an explicit grant.
type GrantChecker struct {
	grants GrantStore
}

func NewGrantChecker(grants GrantStore) *GrantChecker {
	return &GrantChecker{grants: grants}
}

func (c *GrantChecker) HasCapability(ctx context.Context, user *User, capability string) (bool, error) {
	if user == nil || capability == "" {
		return false, nil
	}
	if user.IsSuperuser {
		return true, nil
	}
	granted, err := c.grants.List(ctx, user.ID)
	if err != nil {
		return false, err
	}
	for _, g := range granted {
		if g == capability {
			return true, nil
		}
	}
	return false, nil
}
