package auth

import (
	"context"

	"rmis.udsm.ac.tz/internal/accounts"
)

// Require returns the caller's claims when the context carries an identity
// holding any of the listed roles. An empty role list admits every
// authenticated caller. Admins pass every gate.
func Require(ctx context.Context, roles ...accounts.Role) (*Claims, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, ErrInvalidToken
	}
	if len(roles) == 0 || claims.Role == accounts.RoleAdmin {
		return claims, nil
	}
	for _, role := range roles {
		if claims.Role == role {
			return claims, nil
		}
	}
	return nil, ErrForbidden
}
