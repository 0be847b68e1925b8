package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"appaccess-backend/application/routing"
	apperrors "appaccess-backend/pkg/errors"
)

// shardFile is the YAML layout of the shard configuration file:
//
//	shards:
//	  user:
//	    - hashRangeStart: -2147483648
//	      readerUrl: http://reader-a:5001
//	      writerUrl: http://writer-a:5000
//	  group: ...
//	  groupToGroupMapping: ...
type shardFile struct {
	Shards map[string][]routing.ShardGroup `yaml:"shards"`
}

var shardKeys = map[string]routing.ElementKind{
	"user":                routing.ElementUser,
	"group":               routing.ElementGroup,
	"groupToGroupMapping": routing.ElementGroupToGroupMapping,
}

// FileConfigurationSource reads the shard configuration from a YAML file on
// every fetch. It implements the router's configuration source collaborator.
type FileConfigurationSource struct {
	path string
}

// NewFileConfigurationSource creates a source reading path.
func NewFileConfigurationSource(path string) *FileConfigurationSource {
	return &FileConfigurationSource{path: path}
}

// Fetch parses the file into a shard configuration.
func (s *FileConfigurationSource) Fetch(_ context.Context) (*routing.ShardConfiguration, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Sprintf("reading shard configuration %s", s.path), err)
	}
	var file shardFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.NewInternal(fmt.Sprintf("parsing shard configuration %s", s.path), err)
	}

	shards := make(map[routing.ElementKind][]routing.ShardGroup, len(file.Shards))
	for key, groups := range file.Shards {
		kind, ok := shardKeys[key]
		if !ok {
			return nil, apperrors.NewInvalidArgument("shards", fmt.Sprintf("unknown element kind %q in %s", key, s.path))
		}
		shards[kind] = groups
	}
	return routing.NewShardConfiguration(shards)
}

var _ routing.ConfigurationSource = (*FileConfigurationSource)(nil)

// ShardConfigWatcher watches the shard configuration file and invokes a
// callback when it changes, debouncing editor and atomic-rename write bursts.
type ShardConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewShardConfigWatcher creates a watcher on path. The directory is watched as
// well so atomic saves via rename are seen.
func NewShardConfigWatcher(path string, onChange func(), logger *zap.Logger) (*ShardConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("failed to watch shard configuration directory", zap.Error(err))
	}
	return &ShardConfigWatcher{
		path:     path,
		watcher:  watcher,
		onChange: onChange,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching in the background.
func (w *ShardConfigWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("shard configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching.
func (w *ShardConfigWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

func (w *ShardConfigWatcher) watchLoop() {
	var debounce *time.Timer
	const debounceDuration = 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDuration, func() {
					w.logger.Info("shard configuration changed", zap.String("path", w.path))
					w.onChange()
				})
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("shard configuration watcher error", zap.Error(err))
		}
	}
}
