package loaders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/model"
)

// ModelLoader loads models from COLLADA sources or from the binary cache.
// When CacheDir is set, COLLADA files are converted once and the cached
// files are used until the source changes. MergeConfig, when set, replaces
// the per-file .toml merge configs.
type ModelLoader struct {
	CacheDir    string
	Compress    bool
	MergeConfig *model.MergeConfig
}

// Load returns []*model.Model.
func (ml *ModelLoader) Load(path string) (any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case model.CacheExtension:
		m, err := model.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []*model.Model{m}, nil
	case ".dae":
		return ml.loadCollada(path)
	default:
		return nil, core.UserError("unsupported model file %s", path)
	}
}

func (ml *ModelLoader) convert(path string) ([]*model.Model, error) {
	if ml.MergeConfig == nil {
		return model.ConvertFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := model.ParseCollada(f)
	if err != nil {
		return nil, err
	}
	return doc.ExtractModels(ml.MergeConfig)
}

func (ml *ModelLoader) loadCollada(path string) ([]*model.Model, error) {
	if ml.CacheDir == "" {
		return ml.convert(path)
	}
	index := ml.indexPath(path)
	if models, ok := ml.readCached(path, index); ok {
		return models, nil
	}

	models, err := ml.convert(path)
	if err != nil {
		return nil, err
	}
	if err := ml.writeCached(index, models); err != nil {
		// The models are fine, only the cache is not.
		core.LogWarn("failed to cache %s: %s", path, err)
	}
	return models, nil
}

// indexPath names the file listing the cache entries of one source file.
func (ml *ModelLoader) indexPath(source string) string {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(ml.CacheDir, name+".index")
}

func (ml *ModelLoader) readCached(source, index string) ([]*model.Model, bool) {
	srcInfo, err := os.Stat(source)
	if err != nil {
		return nil, false
	}
	idxInfo, err := os.Stat(index)
	if err != nil || idxInfo.ModTime().Before(srcInfo.ModTime()) {
		return nil, false
	}
	data, err := os.ReadFile(index)
	if err != nil {
		return nil, false
	}
	var models []*model.Model
	for _, name := range strings.Split(string(data), "\n") {
		if name == "" {
			continue
		}
		m, err := model.ReadFile(filepath.Join(ml.CacheDir, name))
		if err != nil {
			core.LogWarn("discarding model cache for %s: %s", source, err)
			return nil, false
		}
		models = append(models, m)
	}
	core.LogDebug("loaded %d cached models for %s", len(models), source)
	return models, true
}

func (ml *ModelLoader) writeCached(index string, models []*model.Model) error {
	if err := os.MkdirAll(ml.CacheDir, 0o755); err != nil {
		return err
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		name, err := model.CacheFileName(m.Name)
		if err != nil {
			return err
		}
		if err := model.WriteFile(filepath.Join(ml.CacheDir, name), m, ml.Compress); err != nil {
			return err
		}
		names = append(names, name)
	}
	return os.WriteFile(index, []byte(strings.Join(names, "\n")), 0o644)
}
