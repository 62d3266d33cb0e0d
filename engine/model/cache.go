package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/exp/mmap"

	"github.com/spaghettifunk/glacier/engine/core"
)

// CacheExtension is used for every file the cache writes.
const CacheExtension = ".mdl"

// CacheFileName returns the cache file name for a model. Names come from
// asset files, so anything that would leave the cache directory is rejected.
func CacheFileName(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\:`) || filepath.IsAbs(name) {
		return "", core.UserError("model name %q cannot be used as a cache file name", name)
	}
	return name + CacheExtension, nil
}

// lz4 frame magic number.
const lz4Magic uint32 = 0x184D2204

// WriteFile stores m at path, optionally wrapped in an lz4 frame.
func WriteFile(path string, m *Model, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !compress {
		if err := m.Encode(f); err != nil {
			return err
		}
		return f.Sync()
	}

	writer := lz4.NewWriter(f)
	if err := m.Encode(writer); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadFile loads a model written by WriteFile. Compression is detected from
// the file contents.
func ReadFile(path string) (*Model, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data := make([]byte, r.Len())
	if _, err := r.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, err
	}
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == lz4Magic {
		data, err = io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
		}
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return m, nil
}

// ConvertFile extracts the models of one COLLADA file. A sibling file with a
// .toml extension, if present, is used as merge config.
func ConvertFile(path string) ([]*Model, error) {
	cfg, err := LoadMergeConfig(strings.TrimSuffix(path, filepath.Ext(path)) + ".toml")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := ParseCollada(f)
	if err != nil {
		return nil, err
	}
	return doc.ExtractModels(cfg)
}

// ConvertDirectory converts every .dae file in srcDir and writes one cache
// file per resulting model into dstDir. It returns the written paths.
func ConvertDirectory(srcDir, dstDir string, compress bool) ([]string, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path must be a directory: %s", srcDir)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".dae") {
			continue
		}
		models, err := ConvertFile(filepath.Join(srcDir, entry.Name()))
		if err != nil {
			err = fmt.Errorf("failed to convert %s: %w", entry.Name(), err)
			core.LogError(err.Error())
			return written, err
		}
		for _, m := range models {
			file, err := CacheFileName(m.Name)
			if err != nil {
				core.LogError(err.Error())
				return written, err
			}
			out := filepath.Join(dstDir, file)
			if err := WriteFile(out, m, compress); err != nil {
				return written, err
			}
			written = append(written, out)
		}
		core.LogDebug("converted %s into %d models", entry.Name(), len(models))
	}
	return written, nil
}
