package sheetsync

import (
	"context"
	"fmt"
	"os"

	"github.com/mmdatafocus/distributor_backend/config"
	"github.com/mmdatafocus/distributor_backend/models"
)

// FileSource reads a snapshot exported as one JSON document.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return "file" }

func (f FileSource) FetchSnapshot(ctx context.Context) (models.RawSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.RawSnapshot{}, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return models.RawSnapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()
	return models.DecodeRawSnapshot(file)
}

// NewSourceFromSettings builds the API source, wrapped in the Redis cache when enabled
// and a Redis client is connected.
func NewSourceFromSettings(s config.Settings) (SnapshotSource, error) {
	client, err := NewClientFromSettings(s)
	if err != nil {
		return nil, err
	}
	if s.SnapshotCacheEnabled && config.GetRedisDB() != nil {
		return NewCachedSource(client, config.GetRedisDB(), config.GetRedisLock(), s.SnapshotCacheTTL), nil
	}
	return client, nil
}

// SourceFor picks a FileSource when path is set, else the configured API source.
func SourceFor(path string, s config.Settings) (SnapshotSource, error) {
	if path != "" {
		return FileSource{Path: path}, nil
	}
	return NewSourceFromSettings(s)
}
