// Package redis connects to Redis through go-redis and exposes a health
// probe. The notification settings hashes live in
// pkg/notifications/redisstore.
//
//	cfg := config.MustLoad[redis.Config]()
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	settings := redisstore.NewSettings(client, redisstore.WithKeyPrefix(cfg.SettingsPrefix))
package redis
