package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"appaccess-backend/application/routing"
	apperrors "appaccess-backend/pkg/errors"
)

func TestLoadWriterConfig_Defaults(t *testing.T) {
	cfg, err := LoadWriterConfig()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.ListenAddress)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "dependencyFree", cfg.Mode)
	assert.Equal(t, "sizeLimited", cfg.FlushStrategy)
	assert.Equal(t, 50, cfg.FlushSizeThreshold)
	assert.Equal(t, 10*time.Second, cfg.FlushInterval)
	assert.True(t, cfg.StoreBidirectionalMappings)
}

func TestLoadWriterConfig_FromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDRESS", ":9000")
	t.Setenv("WRITER_MODE", "strict")
	t.Setenv("FLUSH_STRATEGY", "intervalLimited")
	t.Setenv("FLUSH_INTERVAL", "250ms")
	t.Setenv("STORE_BIDIRECTIONAL_MAPPINGS", "false")

	cfg, err := LoadWriterConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.ListenAddress)
	assert.Equal(t, "strict", cfg.Mode)
	assert.Equal(t, "intervalLimited", cfg.FlushStrategy)
	assert.Equal(t, 250*time.Millisecond, cfg.FlushInterval)
	assert.False(t, cfg.StoreBidirectionalMappings)
}

func TestLoadWriterConfig_Invalid(t *testing.T) {
	t.Setenv("WRITER_MODE", "lenient")
	_, err := LoadWriterConfig()
	assert.Error(t, err)
}

func TestLoadWriterConfig_InvalidFlushStrategy(t *testing.T) {
	t.Setenv("FLUSH_STRATEGY", "whenever")
	_, err := LoadWriterConfig()
	assert.Error(t, err)
}

func TestLoadReaderConfig_RequiresEventCacheURL(t *testing.T) {
	_, err := LoadReaderConfig()
	assert.Error(t, err)

	t.Setenv("EVENT_CACHE_URL", "http://cache:5002")
	cfg, err := LoadReaderConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://cache:5002", cfg.EventCacheURL)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
	assert.True(t, cfg.LoadOnStartup)
}

func TestLoadCacheConfig(t *testing.T) {
	cfg, err := LoadCacheConfig()
	require.NoError(t, err)
	assert.Equal(t, 10000, cfg.Capacity)

	t.Setenv("CACHE_CAPACITY", "-1")
	_, err = LoadCacheConfig()
	assert.Error(t, err)
}

const shardYAML = `shards:
  user:
    - hashRangeStart: -2147483648
      readerUrl: http://reader-a:5001
      writerUrl: http://writer-a:5000
    - hashRangeStart: 0
      readerUrl: http://reader-b:5001
      writerUrl: http://writer-b:5000
  group:
    - hashRangeStart: -2147483648
      readerUrl: http://reader-a:5001
      writerUrl: http://writer-a:5000
  groupToGroupMapping:
    - hashRangeStart: -2147483648
      readerUrl: http://reader-a:5001
      writerUrl: http://writer-a:5000
`

func writeShardFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shards.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileConfigurationSource_Fetch(t *testing.T) {
	source := NewFileConfigurationSource(writeShardFile(t, shardYAML))

	cfg, err := source.Fetch(context.Background())
	require.NoError(t, err)

	shard, err := cfg.ShardFor(routing.ElementUser, -1)
	require.NoError(t, err)
	assert.Equal(t, "http://writer-a:5000", shard.WriterURL)

	shard, err = cfg.ShardFor(routing.ElementUser, 1)
	require.NoError(t, err)
	assert.Equal(t, "http://writer-b:5000", shard.WriterURL)
}

func TestFileConfigurationSource_UnknownKind(t *testing.T) {
	source := NewFileConfigurationSource(writeShardFile(t, "shards:\n  widget:\n    - hashRangeStart: 0\n      readerUrl: http://r\n      writerUrl: http://w\n"))

	_, err := source.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
}

func TestFileConfigurationSource_MissingFile(t *testing.T) {
	source := NewFileConfigurationSource(filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := source.Fetch(context.Background())
	assert.Error(t, err)
}

func TestShardConfigWatcher_NotifiesOnWrite(t *testing.T) {
	path := writeShardFile(t, shardYAML)

	changed := make(chan struct{}, 1)
	watcher, err := NewShardConfigWatcher(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, zap.NewNop())
	require.NoError(t, err)
	watcher.Start()
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, []byte(shardYAML), 0o644))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}
