// Package verification keeps short-lived email verification codes in redis.
package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/go-redis/redis"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// Client is the subset of the redis client the package needs.
type Client interface {
	Get(key string) *redis.StringCmd
	Set(key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(keys ...string) *redis.IntCmd
}

// Codes ...
type Codes struct {
	r   Client
	ttl time.Duration
}

// New creates new instance of Codes. Issued codes expire after ttl.
func New(r Client, ttl time.Duration) *Codes {
	return &Codes{
		r:   r,
		ttl: ttl,
	}
}

// Issue generates a fresh code for the email and stores it, replacing any
// previous one.
func (c *Codes) Issue(_ context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	if err := c.r.Set(codeKey(email), code, c.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	return code, nil
}

// Verify checks the code against the stored one. A match consumes the code.
func (c *Codes) Verify(_ context.Context, email, code string) (bool, error) {
	stored, err := c.r.Get(codeKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}

		return false, fmt.Errorf("failed to get code: %w", err)
	}

	if stored != code {
		return false, nil
	}

	if err := c.r.Del(codeKey(email)).Err(); err != nil {
		return false, fmt.Errorf("failed to delete code: %w", err)
	}

	return true, nil
}

func codeKey(email string) string {
	return "verification:code:" + email
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random: %w", err)
	}

	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}

	return string(buf), nil
}
