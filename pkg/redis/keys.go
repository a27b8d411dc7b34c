package redis

import "strings"

// Every key lives under "elib:" so the instance can share a Redis with other services.
const keyNamespace = "elib"

func (c *Client) IdempotencyKey(scope, id string) string {
	return key("idempotency", scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key("rate_limit", scope)
}

// AccessSessionKey holds the refresh session bound to an access token jti.
func (c *Client) AccessSessionKey(accessID string) string {
	return key("session", "access", accessID)
}

// UserSessionsKey indexes the access IDs of every live session a user holds.
func (c *Client) UserSessionsKey(userID string) string {
	return key("session", "user", userID)
}

// PendingCheckoutKey holds a user's direct-checkout selection.
func (c *Client) PendingCheckoutKey(userID string) string {
	return key("checkout", "pending", userID)
}

func (c *Client) LockKey(name string) string {
	return key("lock", name)
}

// key joins the non-blank parts under the namespace.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}
