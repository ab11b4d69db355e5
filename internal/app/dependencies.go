package app

import (
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-pos/internal/config"
)

// NewValidator builds the request validator shared by HTTP handlers.
func NewValidator() *validator.Validate {
	return validator.New()
}

// NewLoginLimiter builds the per-client limiter guarding the login endpoint
// against credential stuffing. It is stricter than the general API limit.
func NewLoginLimiter(rdb *redis.Client, rate limiter.Rate) (*mhttp.Middleware, error) {
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "rl:login",
	})
	if err != nil {
		return nil, err
	}
	return mhttp.NewMiddleware(limiter.New(store, rate)), nil
}

// AsynqRedisOpt converts the configured Redis URL into asynq connection
// options so the API and worker share one Redis instance.
func AsynqRedisOpt(cfg *config.Config) (asynq.RedisClientOpt, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}, nil
}

// NewTaskClient builds the asynq client used to enqueue offline sync tasks.
func NewTaskClient(cfg *config.Config) (*asynq.Client, error) {
	opt, err := AsynqRedisOpt(cfg)
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}

// NewTaskServer builds the asynq server the worker runs offline sync on.
func NewTaskServer(cfg *config.Config, queue string, concurrency int) (*asynq.Server, error) {
	opt, err := AsynqRedisOpt(cfg)
	if err != nil {
		return nil, err
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
	}), nil
}
