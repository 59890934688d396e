package main

import (
	"context"
	"time"

	"github.com/Sternrassler/yt-channel-scraper/pkg/client"
	"github.com/Sternrassler/yt-channel-scraper/pkg/config"
	"github.com/Sternrassler/yt-channel-scraper/pkg/logging"
	"github.com/Sternrassler/yt-channel-scraper/pkg/quota"
	"github.com/Sternrassler/yt-channel-scraper/pkg/scraper"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// app holds the components shared by all subcommands.
type app struct {
	cfg     *config.Config
	client  *client.Client
	scraper *scraper.Scraper

	// redis and tracker are nil when quota accounting is not configured.
	redis   *redis.Client
	tracker *quota.Tracker
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}
	if redisOpts != nil {
		a.redis = redis.NewClient(redisOpts)
		a.tracker = quota.NewTracker(a.redis, logging.NewLogger(logging.ComponentQuota), cfg.Quota.DailyLimit)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			log.Warn().
				Err(err).
				Str("addr", redisOpts.Addr).
				Msg("Redis unreachable - quota accounting will fail until it is back")
		} else {
			log.Debug().Str("addr", redisOpts.Addr).Msg("Connected to Redis")
		}
	}

	clientCfg := client.DefaultConfig(cfg.APIKey)
	clientCfg.ServiceName = cfg.ServiceName
	clientCfg.Version = cfg.Version
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.Timeout = time.Duration(cfg.Timeout)
	if cfg.UserAgent != "" {
		clientCfg.UserAgent = cfg.UserAgent
	}
	if a.tracker != nil {
		clientCfg.Quota = a.tracker
	}

	c, err := client.New(clientCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = c
	a.scraper = scraper.New(c)

	return a, nil
}

// Close releases the API client and the Redis connection.
func (a *app) Close() {
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
