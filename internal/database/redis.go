package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hypernova-labs/metering-service/internal/config"
	"github.com/redis/go-redis/v9"
)

// cleanupQueueKey es el sorted set con los archivos pendientes de borrado,
// con el deadline unix como score.
const cleanupQueueKey = "metering:image_cleanup"

// Redis representa la conexión a Redis
type Redis struct {
	*redis.Client
}

// ConnectRedis establece la conexión a Redis
func ConnectRedis(cfg *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	// Verificar conexión
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error pinging Redis: %w", err)
	}

	return &Redis{client}, nil
}

// Close cierra la conexión a Redis
func (r *Redis) Close() error {
	return r.Client.Close()
}

// HealthCheck verifica la salud de Redis
func (r *Redis) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return r.Ping(ctx).Err()
}

// ScheduleCleanup encola un archivo para borrado en el deadline indicado.
// La cola sobrevive reinicios del proceso, a diferencia de un timer en memoria.
func (r *Redis) ScheduleCleanup(ctx context.Context, fileName string, due time.Time) error {
	err := r.Client.ZAdd(ctx, cleanupQueueKey, redis.Z{
		Score:  float64(due.Unix()),
		Member: fileName,
	}).Err()
	if err != nil {
		return fmt.Errorf("error scheduling cleanup for %s: %w", fileName, err)
	}

	return nil
}

// DueCleanups retorna los archivos cuyo deadline de borrado ya venció
func (r *Redis) DueCleanups(ctx context.Context, now time.Time) ([]string, error) {
	members, err := r.Client.ZRangeByScore(ctx, cleanupQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading cleanup queue: %w", err)
	}

	return members, nil
}

// RemoveCleanup saca un archivo de la cola de borrado
func (r *Redis) RemoveCleanup(ctx context.Context, fileName string) error {
	if err := r.Client.ZRem(ctx, cleanupQueueKey, fileName).Err(); err != nil {
		return fmt.Errorf("error removing %s from cleanup queue: %w", fileName, err)
	}

	return nil
}
