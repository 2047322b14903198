package cache

import "fmt"

const rateLimitKeyFormat = "rl:%s:%s"

// RateLimitKey names the counter for one resource and caller identity.
func RateLimitKey(resource, identity string) string {
	return fmt.Sprintf(rateLimitKeyFormat, resource, identity)
}
