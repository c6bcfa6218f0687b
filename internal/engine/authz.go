package engine

import (
	"github.com/lair-chat/lair-chat-server/internal/apperr"
	"github.com/lair-chat/lair-chat-server/internal/domain"
)

// requireAuthenticated extracts an AuthenticatedCaller or fails with
// Unauthorized. Register, Login, Authenticate, Ping and Pong are handled
// without it; every other handler requires this.
func requireAuthenticated(caller Caller) (AuthenticatedCaller, error) {
	ac, ok := caller.(AuthenticatedCaller)
	if !ok {
		return AuthenticatedCaller{}, apperr.Unauthorized("")
	}
	return ac, nil
}

// requireAdmin fails with PermissionDenied unless caller holds the global
// Admin role.
func requireAdmin(caller AuthenticatedCaller) error {
	if !caller.Role.HasPermission(domain.RoleAdmin) {
		return apperr.PermissionDenied("admin role required")
	}
	return nil
}

// requireRoomRole fails with PermissionDenied unless membership's role
// outranks or equals required, or the caller is a global Admin.
func requireRoomRole(caller AuthenticatedCaller, membership *domain.RoomMembership, required domain.RoomRole) error {
	if caller.Role == domain.RoleAdmin {
		return nil
	}
	if membership == nil || !membership.Role.AtLeast(required) {
		return apperr.PermissionDenied("insufficient room role")
	}
	return nil
}
