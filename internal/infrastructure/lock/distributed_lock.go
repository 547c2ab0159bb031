package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// Redis distributed lock
// ============================================================================
//
// Acquire: SET key token NX EX ttl
//   - NX gives mutual exclusion
//   - EX frees the lock if the holder dies
//   - token identifies the holder so nobody else can release it
//
// Release: a Lua compare-and-delete, so a holder whose lock already expired
// cannot delete the lock of the next holder.
// ============================================================================

var (
	ErrLockFailed = errors.New("could not acquire lock")
)

const unlockScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock makes a single non-blocking attempt.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock retries TryLock every retryInterval, at most maxRetries times.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

func (l *DistributedLock) Unlock(ctx context.Context) error {
	return l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Err()
}

// ============================================================================
// Per-NFT settlement lock
// ============================================================================

// NFTKey is the lock key serializing every state change of one NFT.
func NFTKey(nftID int64) string {
	return fmt.Sprintf("market:lock:nft:%d", nftID)
}

// NFTLocker hands out per-NFT locks. Each acquisition gets its own token.
type NFTLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	maxRetries    int
}

func NewNFTLocker(client *redis.Client, ttl time.Duration) *NFTLocker {
	return &NFTLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: 100 * time.Millisecond,
		maxRetries:    50,
	}
}

// Lock blocks until the NFT's lock is held and returns its release func.
func (n *NFTLocker) Lock(ctx context.Context, nftID int64) (func(), error) {
	l := NewDistributedLock(n.client, NFTKey(nftID), uuid.NewString(), n.ttl)
	if err := l.Lock(ctx, n.retryInterval, n.maxRetries); err != nil {
		return nil, fmt.Errorf("lock nft %d: %w", nftID, err)
	}
	return func() {
		// release with a fresh context so a cancelled request still unlocks
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = l.Unlock(ctx)
	}, nil
}
