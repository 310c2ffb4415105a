package auth

import "github.com/angelmondragon/fleetops-backend/pkg/enums"

// SystemUsername attributes changes made by background jobs.
const SystemUsername = "system"

// Actor is the identity attached to every mutating call.
type Actor struct {
	Username string
	Role     enums.UserRole
}

// SystemActor is used by scheduled jobs.
func SystemActor() Actor {
	return Actor{Username: SystemUsername, Role: enums.UserRoleSuperAdmin}
}

// ActorFromClaims lifts token claims into an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{Username: claims.Username, Role: claims.Role}
}
