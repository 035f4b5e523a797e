// Package redis connects to Redis with retries and exposes a health check
// for readiness probes.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	ready := redis.Healthcheck(client)
//
// Config fields are read from REDIS_* environment variables through
// pkg/config.
package redis
