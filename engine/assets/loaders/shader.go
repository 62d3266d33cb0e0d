package loaders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/resource"
)

// ShaderLoader reads compiled SPIR-V. The stage comes from the file name,
// as glslc names its output: stock.vert.spv, stock.frag.spv.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string) (any, error) {
	stage, err := ShaderStageFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	words, err := bytesToBytecode(data)
	if err != nil {
		return nil, core.Wrap(core.KindUser, err, "invalid shader %s", path)
	}
	return &resource.ShaderCreationData{
		Data:  words,
		Stage: stage,
	}, nil
}

func ShaderStageFromPath(path string) (resource.ShaderStage, error) {
	base := strings.TrimSuffix(filepath.Base(path), ".spv")
	switch filepath.Ext(base) {
	case ".vert":
		return resource.ShaderStageVertex, nil
	case ".frag":
		return resource.ShaderStageFragment, nil
	default:
		return 0, core.UserError("cannot tell the shader stage of %s", path)
	}
}
