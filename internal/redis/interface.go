package redis

import (
	"github.com/redis/go-redis/v9"
)

//go:generate mockgen -destination=mocks/redis.go -package=redismocks -source=interface.go

// Client wraps redis.UniversalClient to allow for easy mocking
type Client interface {
	redis.UniversalClient
}

// PubSub is the subscription handle returned by Client.Subscribe. Aliased here
// so callers outside this package don't import go-redis directly.
type PubSub = redis.PubSub
