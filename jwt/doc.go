// Package jwt issues and inspects stateless routing tokens: HS256-signed
// {uid, role, ip, iat, exp} claims used for coarse request gatekeeping where the
// session store is not reachable.
//
// A routing token proves only that this deployment minted it and that it has not
// expired. It cannot be revoked and must never be used for an authorization decision;
// the stateful session check stays authoritative.
package jwt
