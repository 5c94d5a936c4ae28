package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const snapshotKeyPrefix = "session:"

var ErrSnapshotNotFound = fmt.Errorf("%w: session snapshot", apperror.ErrNotFound)

type SessionSnapshotRepository interface {
	CreateOrUpdate(ctx context.Context, snapshot *entity.SessionSnapshot) error
	GetByID(ctx context.Context, id string) (*entity.SessionSnapshot, error)
}

type dbSessionSnapshot struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionSnapshotRepository keeps every snapshot for ttl after its last write. Zero ttl keeps them forever.
func NewSessionSnapshotRepository(client *redis.Client, ttl time.Duration) SessionSnapshotRepository {
	return &dbSessionSnapshot{
		client: client,
		ttl:    ttl,
	}
}

func (that *dbSessionSnapshot) CreateOrUpdate(ctx context.Context, snapshot *entity.SessionSnapshot) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("could not marshal session snapshot: %w", err)
	}

	err = that.client.Set(ctx, snapshotKeyPrefix+snapshot.ID, snapshotJSON, that.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set session snapshot: %w", err)
	}

	return nil
}

func (that *dbSessionSnapshot) GetByID(ctx context.Context, id string) (*entity.SessionSnapshot, error) {
	response, err := that.client.Get(ctx, snapshotKeyPrefix+id).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session snapshot by id: %w", err)
	}

	var snapshot entity.SessionSnapshot
	if err = json.Unmarshal([]byte(response), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}

	return &snapshot, nil
}
