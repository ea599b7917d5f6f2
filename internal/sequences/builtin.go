package sequences

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// LoadBuiltinSequences returns the demo sequences shipped in the binary.
func LoadBuiltinSequences() ([]*Sequence, error) {
	files, err := fs.Glob(builtinFS, "builtin/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list builtin sequences: %w", err)
	}

	out := make([]*Sequence, 0, len(files))
	for _, file := range files {
		data, err := fs.ReadFile(builtinFS, file)
		if err != nil {
			return nil, fmt.Errorf("read builtin sequence %s: %w", path.Base(file), err)
		}
		seq, err := ParseSequence(data)
		if err != nil {
			return nil, fmt.Errorf("parse builtin sequence %s: %w", path.Base(file), err)
		}
		seq.Source = "builtin"
		out = append(out, seq)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
