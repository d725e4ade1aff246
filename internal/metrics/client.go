package metrics

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds the client backing the usage recorder. Timeouts stay
// tight because every call sits on or near the intake path.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("metrics: redis addr is empty")
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}), nil
}
