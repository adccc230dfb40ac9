// Package auth derives a stable client identity for rate limiting and
// upload attribution. There is no account system; identity is a best
// effort chain of credentials falling back to the caller's address.
package auth

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxIdentity = "client_identity"

// Identity is the resolved caller for one request.
type Identity struct {
	// Subject is the stable rate-limit bucket key, e.g. "user:42",
	// "apikey:ab12..." or "ip:9e10...".
	Subject string
	// Authenticated is true when the request carried credentials and
	// selects the authenticated rate-limit tier.
	Authenticated bool
	Username      string
}

// Middleware resolves the caller identity and stores it on the gin
// context for downstream handlers.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxIdentity, Resolve(c))
		c.Next()
	}
}

// From returns the identity stored by Middleware, resolving on the
// fly when the middleware did not run (tests, direct handler use).
func From(c *gin.Context) Identity {
	if v, ok := c.Get(ctxIdentity); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Resolve(c)
}

// Resolve derives the identity from request credentials, strongest
// first: explicit user header, then API key, then client address.
func Resolve(c *gin.Context) Identity {
	authenticated := strings.TrimSpace(c.GetHeader("Authorization")) != ""

	if uid := strings.TrimSpace(c.GetHeader("X-User-Id")); uid != "" {
		return Identity{Subject: "user:" + uid, Authenticated: true, Username: uid}
	}

	if key := strings.TrimSpace(c.GetHeader("X-API-Key")); key != "" {
		sum := sha256.Sum256([]byte(key))
		return Identity{Subject: "apikey:" + hex.EncodeToString(sum[:])[:16], Authenticated: true}
	}

	return Identity{Subject: "ip:" + hashAddr(clientAddr(c)), Authenticated: authenticated}
}

// clientAddr prefers the first X-Forwarded-For hop, matching what the
// reverse proxy records as the original client.
func clientAddr(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if addr := strings.TrimSpace(first); addr != "" {
			return addr
		}
	}
	addr := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// hashAddr keeps raw addresses out of logs and bucket keys.
func hashAddr(addr string) string {
	sum := md5.Sum([]byte(addr))
	return hex.EncodeToString(sum[:])
}
