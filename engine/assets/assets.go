package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spaghettifunk/glacier/engine/assets/loaders"
	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/model"
	"github.com/spaghettifunk/glacier/engine/resource"
)

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeTexture
	AssetTypeShader
	AssetTypeModel
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeTexture:
		return "texture"
	case AssetTypeShader:
		return "shader"
	case AssetTypeModel:
		return "model"
	default:
		return "none"
	}
}

// AssetInfo is the index entry of one file under the asset directory. Path
// is relative to the asset directory with forward slashes.
type AssetInfo struct {
	ID         uuid.UUID
	Path       string
	Type       AssetType
	LastLoaded time.Time
}

// ChangeHandler is called from the watcher goroutine.
type ChangeHandler func(info AssetInfo, removed bool)

type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[AssetType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	onChange ChangeHandler
}

// ModelOptions configure model loading. An empty CacheDir disables the
// model cache; an empty MergeConfig keeps the per-file merge configs.
type ModelOptions struct {
	CacheDir    string
	Compress    bool
	MergeConfig string
}

func NewAssetManager(assetsDir string, opts ModelOptions) (*AssetManager, error) {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return nil, err
	}
	modelLoader := &loaders.ModelLoader{CacheDir: opts.CacheDir, Compress: opts.Compress}
	if opts.MergeConfig != "" {
		if modelLoader.MergeConfig, err = model.LoadMergeConfig(opts.MergeConfig); err != nil {
			return nil, err
		}
	}
	am := &AssetManager{
		root:    root,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[AssetType]Loader),
	}

	am.registerLoader(AssetTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(AssetTypeTexture, &loaders.TextureLoader{})
	am.registerLoader(AssetTypeModel, modelLoader)

	if err := am.index(); err != nil {
		return nil, err
	}
	return am, nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType AssetType, loader Loader) {
	am.loaders[assetType] = loader
}

// index records every known file under the root.
func (am *AssetManager) index() error {
	return filepath.WalkDir(am.root, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			am.handleFileEvent(walkPath)
		}
		return nil
	})
}

func (am *AssetManager) Root() string {
	return am.root
}

// Lookup returns the index entry for a path relative to the root.
func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.ToSlash(name)]
	return info, ok
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// LoadAsset loads a file through the loader registered for its type.
func (am *AssetManager) LoadAsset(name string) (any, error) {
	key := filepath.ToSlash(name)
	am.mutex.Lock()
	asset, exists := am.assets[key]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[key] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, core.MissingResource("asset not found: %s", name)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, core.EngineError("no loader registered for asset type %s", asset.Type)
	}
	start := time.Now()
	result, err := loader.Load(filepath.Join(am.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	core.LogDebug("loaded %s %s (%s) in %s", asset.Type, key, asset.ID, time.Since(start))
	return result, nil
}

func (am *AssetManager) LoadTexture(name string) (*resource.TextureCreationData, error) {
	return loadAs[*resource.TextureCreationData](am, name, AssetTypeTexture)
}

func (am *AssetManager) LoadShader(name string) (*resource.ShaderCreationData, error) {
	return loadAs[*resource.ShaderCreationData](am, name, AssetTypeShader)
}

func (am *AssetManager) LoadModels(name string) ([]*model.Model, error) {
	return loadAs[[]*model.Model](am, name, AssetTypeModel)
}

func loadAs[T any](am *AssetManager, name string, want AssetType) (T, error) {
	var zero T
	if got := determineAssetType(name); got != want {
		return zero, core.UserError("%s is a %s asset, not a %s", name, got, want)
	}
	result, err := am.LoadAsset(name)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, core.EngineError("%s loader returned %T", want, result)
	}
	return typed, nil
}

// Watch starts reporting changes under the root to onChange until Close.
func (am *AssetManager) Watch(onChange ChangeHandler) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	if am.fsnotify != nil {
		return errors.New("asset manager already watching")
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch
	am.onChange = onChange
	am.done = make(chan struct{})
	am.stopped = make(chan struct{})

	if err := am.watchRecursive(am.root); err != nil {
		fsWatch.Close()
		am.fsnotify = nil
		return err
	}
	go am.start()
	return nil
}

// Close stops the watcher, if any.
func (am *AssetManager) Close() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if am.fsnotify == nil {
		return nil
	}
	close(am.done)
	<-am.stopped
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s != nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err)
			}
		}
		return
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if info, ok := am.handleFileEvent(e.Name); ok && am.onChange != nil {
			am.onChange(info, false)
		}
	}
	// Can't stat a deleted path, so try to drop it from both the index and
	// the watch list.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if info, ok := am.removeAsset(e.Name); ok && am.onChange != nil {
			am.onChange(info, true)
		}
		am.fsnotify.Remove(e.Name)
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

func (am *AssetManager) relative(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (AssetInfo, bool) {
	rel, ok := am.relative(path)
	if !ok {
		return AssetInfo{}, false
	}
	assetType := determineAssetType(rel)
	if assetType == AssetTypeNone {
		return AssetInfo{}, false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, exists := am.assets[rel]
	if !exists {
		info = AssetInfo{ID: uuid.New(), Path: rel, Type: assetType}
		am.assets[rel] = info
	}
	return info, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) (AssetInfo, bool) {
	rel, ok := am.relative(path)
	if !ok {
		return AssetInfo{}, false
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, exists := am.assets[rel]
	delete(am.assets, rel)
	return info, exists
}

func determineAssetType(path string) AssetType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return AssetTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return AssetTypeTexture
	case ".dae", model.CacheExtension:
		return AssetTypeModel
	default:
		return AssetTypeNone
	}
}
