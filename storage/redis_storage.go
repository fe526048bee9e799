package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vultisig/tipjar/config"
	"github.com/vultisig/tipjar/contexthelper"
	"github.com/vultisig/tipjar/internal/types"
)

// shellStateTTL bounds how long an idle shell's inputs and status survive.
const shellStateTTL = 24 * time.Hour

type RedisStorage struct {
	cfg    config.Config
	client *redis.Client
}

func NewRedisStorage(cfg config.Config) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	status := client.Ping(context.Background())
	if status.Err() != nil {
		return nil, status.Err()
	}
	return NewRedisStorageWithClient(cfg, client), nil
}

// NewRedisStorageWithClient wraps an already configured client.
func NewRedisStorageWithClient(cfg config.Config, client *redis.Client) *RedisStorage {
	return &RedisStorage{
		cfg:    cfg,
		client: client,
	}
}

func shellKey(viewID string) string {
	return "shell-" + viewID
}

// GetShellState returns the view state of viewID, or a fresh one when the
// view has never been saved.
func (r *RedisStorage) GetShellState(ctx context.Context, viewID string) (*types.ShellState, error) {
	if contexthelper.CheckCancellation(ctx) != nil {
		return nil, ctx.Err()
	}
	stateJSON, err := r.client.Get(ctx, shellKey(viewID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.NewShellState(), nil
		}
		return nil, fmt.Errorf("fail to get shell state, err: %w", err)
	}
	var state types.ShellState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("fail to deserialize shell state, err: %w", err)
	}
	return &state, nil
}

func (r *RedisStorage) SetShellState(ctx context.Context, viewID string, state *types.ShellState) error {
	if contexthelper.CheckCancellation(ctx) != nil {
		return ctx.Err()
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("fail to serialize shell state to json, err: %w", err)
	}
	return r.client.Set(ctx, shellKey(viewID), string(stateJSON), shellStateTTL).Err()
}

func (r *RedisStorage) DeleteShellState(ctx context.Context, viewID string) error {
	if contexthelper.CheckCancellation(ctx) != nil {
		return ctx.Err()
	}
	return r.client.Del(ctx, shellKey(viewID)).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
