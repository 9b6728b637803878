package redis

import (
	"Ripple/internal/pkg/consts"
	"context"
	"time"
)

const tagSetExpiration = 24 * time.Hour

// SetWithTags 写入缓存并把键登记到所属标签集合,
// 之后可以按标签批量失效而无需枚举具体键名
func SetWithTags(ctx context.Context, key string, value interface{}, expiration time.Duration, tags ...string) error {
	pipe := Rdb.TxPipeline()
	pipe.Set(ctx, key, value, expiration)
	for _, tag := range tags {
		tagKey := consts.CacheTagKey + tag
		pipe.SAdd(ctx, tagKey, key)
		pipe.Expire(ctx, tagKey, tagSetExpiration)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// InvalidateByTags 删除任一标签关联的全部缓存键和标签集合本身
func InvalidateByTags(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	tagKeys := make([]string, 0, len(tags))
	for _, tag := range tags {
		tagKeys = append(tagKeys, consts.CacheTagKey+tag)
	}

	keys, err := Rdb.SUnion(ctx, tagKeys...).Result()
	if err != nil {
		return err
	}

	pipe := Rdb.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, tagKeys...)
	_, err = pipe.Exec(ctx)
	return err
}
