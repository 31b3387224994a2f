package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultReferenceTTL 冪等鍵保留時間，超過後同一 reference 視為新訂單
const DefaultReferenceTTL = 24 * time.Hour

type ReferenceStore interface {
	// Reserve 第一次使用 reference 時記下 orderID 並回傳 true；
	// 已被使用時回傳先前的 orderID 與 false
	Reserve(ctx context.Context, reference, orderID string) (string, bool, error)
	// Forget 下單失敗時釋放 reference
	Forget(ctx context.Context, reference string) error
}

type ReferenceStoreImpl struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReferenceStore(client *redis.Client, ttl time.Duration) ReferenceStore {
	if ttl <= 0 {
		ttl = DefaultReferenceTTL
	}
	return &ReferenceStoreImpl{
		client: client,
		ttl:    ttl,
	}
}

func (s *ReferenceStoreImpl) key(reference string) string {
	return "purchase:ref:" + reference
}

func (s *ReferenceStoreImpl) Reserve(ctx context.Context, reference, orderID string) (string, bool, error) {
	key := s.key(reference)
	ok, err := s.client.SetNX(ctx, key, orderID, s.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return orderID, true, nil
	}

	existing, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// 在 SETNX 與 GET 之間過期，重試一次
		return s.Reserve(ctx, reference, orderID)
	}
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

func (s *ReferenceStoreImpl) Forget(ctx context.Context, reference string) error {
	return s.client.Del(ctx, s.key(reference)).Err()
}
