package swarm

import "github.com/docker/docker/errdefs"

// IsNotFound reports that the remote entity does not exist. Routinely
// handled by the lifecycle, never surfaced.
func IsNotFound(err error) bool {
	return errdefs.IsNotFound(err)
}

// IsClientError reports a caller-side failure (malformed request, auth).
// These are fatal and surfaced to the caller unchanged.
func IsClientError(err error) bool {
	return errdefs.IsInvalidParameter(err) ||
		errdefs.IsUnauthorized(err) ||
		errdefs.IsForbidden(err) ||
		errdefs.IsConflict(err) ||
		errdefs.IsNotImplemented(err)
}

// IsServerError reports backend instability. The lifecycle treats these
// like absence so a broken service gets recreated. Transport errors the
// daemon never classified land here as well.
func IsServerError(err error) bool {
	if err == nil || IsNotFound(err) || IsClientError(err) {
		return false
	}
	return true
}
