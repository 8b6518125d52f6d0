package funding

// RequireOwner verifies that the caller is the record's owner. Pure and
// synchronous: it must run before any balance mutation or rail dispatch,
// and a failure here guarantees no state was touched.
func RequireOwner(owner, caller Identity, resource string) error {
	if caller == "" || caller != owner {
		return &AuthorizationError{Resource: resource, Caller: caller}
	}
	return nil
}
