package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by RedisRepository.
const DefaultRedisPrefix = "filedrop:"

// RedisRepository stores records in Redis.
//
// Key patterns (after the prefix):
//   - files:seq        - INCR counter for ids
//   - files:record:{id} - JSON-encoded record
//   - files:created    - sorted set of ids scored by createdAt (unix micro)
//
// Record and index are written and removed in one MULTI/EXEC.
type RedisRepository struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRepository(rdb *redis.Client, prefix string) *RedisRepository {
	return &RedisRepository{rdb: rdb, prefix: prefix}
}

func (r *RedisRepository) seqKey() string     { return r.prefix + "files:seq" }
func (r *RedisRepository) createdKey() string { return r.prefix + "files:created" }

func (r *RedisRepository) recordKey(id int64) string {
	return r.prefix + "files:record:" + strconv.FormatInt(id, 10)
}

func (r *RedisRepository) Create(ctx context.Context, file *models.NewFile) (*models.File, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}

	id, err := r.rdb.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate id: %w: %w", common.ErrPersistence, err)
	}

	rec := &models.File{
		ID:           id,
		Filename:     file.Filename,
		OriginalName: file.OriginalName,
		MimeType:     file.MimeType,
		Size:         file.Size,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal file: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.recordKey(id), data, 0)
		pipe.ZAdd(ctx, r.createdKey(), redis.Z{
			Score:  float64(rec.CreatedAt.UnixMicro()),
			Member: id,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w: %w", common.ErrPersistence, err)
	}

	return rec, nil
}

func (r *RedisRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	data, err := r.rdb.Get(ctx, r.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("file %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w: %w", common.ErrPersistence, err)
	}

	var rec models.File
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file %d: %w", id, err)
	}
	return &rec, nil
}

// List reads the index newest first and fetches the records with MGET.
// Ids whose record vanished between the two calls are skipped.
func (r *RedisRepository) List(ctx context.Context) ([]*models.File, error) {
	ids, err := r.rdb.ZRevRange(ctx, r.createdKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w: %w", common.ErrPersistence, err)
	}

	result := []*models.File{}
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefix + "files:record:" + id
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get files: %w: %w", common.ErrPersistence, err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec models.File
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal file %s: %w", ids[i], err)
		}
		result = append(result, &rec)
	}

	// equal scores come back in lexicographic member order
	models.SortNewestFirst(result)
	return result, nil
}

func (r *RedisRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var del *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.recordKey(id))
		pipe.ZRem(ctx, r.createdKey(), id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w: %w", common.ErrPersistence, err)
	}
	return del.Val() > 0, nil
}
