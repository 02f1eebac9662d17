package constants

// PermissionRoles maps each permission to the roles allowed to perform it.
// Route-level coarse check; ownership and lifecycle rules are enforced in the
// donations service on top of this.
var PermissionRoles = map[string][]string{
	CreateDonation:    {Donor},
	EditDonation:      {Donor},
	DeleteDonation:    {Donor},
	AcceptDonation:    {NGO},
	RejectDonation:    {NGO},
	FundDonation:      {Donor},
	ViewNotifications: {Donor, NGO, Admin},
	VerifyNGO:         {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
