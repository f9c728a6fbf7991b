package out

import (
	"context"
	"errors"
	"fmt"

	"readjourney/internal/modules/identity/domain"
	identityout "readjourney/internal/modules/identity/port/out"
	"readjourney/internal/platform/boltcache"
)

const (
	IdentityBucket = "identity"
	userKey        = "user"
	tokenKey       = "token"
)

type storedToken struct {
	Value  string             `json:"value"`
	Source domain.TokenSource `json:"source"`
}

// BoltIdentityCache keeps one user and one token under fixed keys. Both keys
// change in the same bbolt transaction.
type BoltIdentityCache struct {
	cache *boltcache.Cache
}

var _ identityout.Cache = (*BoltIdentityCache)(nil)

func NewBoltIdentityCache(cache *boltcache.Cache) *BoltIdentityCache {
	return &BoltIdentityCache{cache: cache}
}

func (c *BoltIdentityCache) Load(context.Context) (domain.Snapshot, bool, error) {
	var snapshot domain.Snapshot
	var user domain.RemoteUser
	switch err := c.cache.Get(IdentityBucket, userKey, &user); {
	case errors.Is(err, boltcache.ErrMiss):
	case err != nil:
		return domain.Snapshot{}, false, fmt.Errorf("load cached user: %w", err)
	default:
		snapshot.User = &user
	}
	var tok storedToken
	switch err := c.cache.Get(IdentityBucket, tokenKey, &tok); {
	case errors.Is(err, boltcache.ErrMiss):
	case err != nil:
		return domain.Snapshot{}, false, fmt.Errorf("load cached token: %w", err)
	default:
		snapshot.Token = tok.Value
		snapshot.TokenSource = tok.Source
	}
	if snapshot.User == nil && snapshot.Token == "" {
		return domain.Snapshot{}, false, nil
	}
	return snapshot, true, nil
}

func (c *BoltIdentityCache) Save(_ context.Context, snapshot domain.Snapshot) error {
	return c.cache.Update(IdentityBucket, func(txn *boltcache.Txn) error {
		if snapshot.User == nil {
			if err := txn.Delete(userKey); err != nil {
				return err
			}
		} else if err := txn.Put(userKey, snapshot.User); err != nil {
			return err
		}
		if snapshot.Token == "" {
			return txn.Delete(tokenKey)
		}
		return txn.Put(tokenKey, storedToken{Value: snapshot.Token, Source: snapshot.TokenSource})
	})
}

func (c *BoltIdentityCache) Clear(context.Context) error {
	return c.cache.Update(IdentityBucket, func(txn *boltcache.Txn) error {
		if err := txn.Delete(userKey); err != nil {
			return err
		}
		return txn.Delete(tokenKey)
	})
}
