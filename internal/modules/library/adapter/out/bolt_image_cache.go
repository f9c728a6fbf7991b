package out

import (
	"context"
	"errors"

	libraryout "readjourney/internal/modules/library/port/out"
	"readjourney/internal/platform/boltcache"
)

const ImageBucket = "book_images"

type BoltImageCache struct {
	cache *boltcache.Cache
}

var _ libraryout.ImageCache = (*BoltImageCache)(nil)

func NewBoltImageCache(cache *boltcache.Cache) *BoltImageCache {
	return &BoltImageCache{cache: cache}
}

func (c *BoltImageCache) Image(_ context.Context, bookID string) (string, bool, error) {
	var image string
	err := c.cache.Get(ImageBucket, bookID, &image)
	if errors.Is(err, boltcache.ErrMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return image, true, nil
}

func (c *BoltImageCache) RememberImages(_ context.Context, images map[string]string) error {
	return c.cache.Update(ImageBucket, func(txn *boltcache.Txn) error {
		for bookID, image := range images {
			if err := txn.Put(bookID, image); err != nil {
				return err
			}
		}
		return nil
	})
}
