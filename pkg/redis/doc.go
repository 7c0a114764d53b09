// Package redis provides connection bootstrapping for github.com/redis/go-redis.
//
// The broker streams, the idempotency store, the retry tracker and the
// template cache all share one client created here:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	client, err := redis.Connect(ctx, cfg)
//
// Healthcheck wraps a client into a probe function for the readiness surface.
package redis
