package userland

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed files/*.txt
var files embed.FS

// Files returns the text files shipped with the user programs keyed by name.
func Files() map[string][]byte {
	entries, err := fs.ReadDir(files, "files")
	if err != nil {
		return nil
	}

	out := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		data, err := fs.ReadFile(files, "files/"+entry.Name())
		if err != nil {
			continue
		}
		out[entry.Name()] = data
	}
	return out
}

// Names returns the sorted names of the user programs.
func Names() []string {
	names := make([]string, 0, len(programs))
	for name := range programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
