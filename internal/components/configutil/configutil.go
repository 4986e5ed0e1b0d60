package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/creasty/defaults"
	"github.com/titanous/json5"
)

// LocalPath returns the path of the local override file for `name`,
// `config.json5` becomes `config.local.json5`.
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readLayer decodes the file at path into dst. A missing or empty file is
// reported as found == false without an error.
func readLayer(path string, dst any) (found bool, err error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(content) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(content, dst)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig builds T from these layers, later ones override earlier ones:
//  1. `default:"..."` struct tags on T
//  2. the file at `name`, decoded directly over the defaults
//  3. the file at LocalPath(name), merged so that only its non-zero fields apply
//
// If neither file exists the defaults are returned together with os.ErrNotExist.
func ReadConfig[T any](name string) (T, error) {
	var out T
	err := defaults.Set(&out)
	if err != nil {
		return out, fmt.Errorf("apply defaults: %w", err)
	}

	baseFound, err := readLayer(name, &out)
	if err != nil {
		return out, err
	}

	localPath := LocalPath(name)
	var local T
	localFound, err := readLayer(localPath, &local)
	if err != nil {
		return out, err
	}
	if localFound {
		err = mergo.Merge(&out, local, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", localPath, err)
		}
		slog.Info("merging config with local overrides", "local", localPath)
	}

	if !baseFound && !localFound {
		return out, os.ErrNotExist
	}
	return out, nil
}
