package auth

// Authorize is the single allow/deny decision for every protected operation,
// whether the requirement is declared on one endpoint or on a whole group.
// The evaluation order is user-visible and fixed:
//
//  1. no principal            -> ErrAuthenticationRequired
//  2. identity deactivated    -> ErrAccountDeactivated
//  3. role not in requirement -> *PermissionError
//
// An empty requirement admits any authenticated, active principal. Membership
// is by identity: RoleAdmin does not imply RoleUser.
func Authorize(principal *Principal, required ...Role) error {
	if principal == nil {
		return ErrAuthenticationRequired
	}
	if !principal.Identity.Active {
		return ErrAccountDeactivated
	}
	if len(required) == 0 {
		return nil
	}
	for _, role := range required {
		if principal.Claims.Role == role {
			return nil
		}
	}
	return &PermissionError{Required: required}
}
