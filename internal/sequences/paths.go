package sequences

import (
	"os"
	"path/filepath"
)

// SearchPaths returns sequence directories in precedence order. dir, when
// set, is the configured sequences directory and is searched first.
func SearchPaths(projectDir, dir string) []string {
	paths := make([]string, 0, 4)
	if dir != "" {
		paths = append(paths, dir)
	}
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".cutscene", "sequences"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "cutscene", "sequences"))
	}
	paths = append(paths, filepath.Join(string(filepath.Separator), "usr", "share", "cutscene", "sequences"))
	return paths
}

// LoadCatalog loads every reachable sequence. A name found earlier in the
// search paths shadows later ones; builtins come last.
func LoadCatalog(projectDir, dir string) (*Catalog, error) {
	var all []*Sequence
	for _, path := range SearchPaths(projectDir, dir) {
		found, err := LoadSequencesFromDir(path)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}

	builtins, err := LoadBuiltinSequences()
	if err != nil {
		return nil, err
	}
	all = append(all, builtins...)

	return NewCatalog(all), nil
}
