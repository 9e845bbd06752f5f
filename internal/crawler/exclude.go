package crawler

import "strings"

var (
	DefaultExcludeDirs = []string{
		"AppData", "node_modules", ".git", ".Trash", "System Volume Information",
		".venv", ".gradle", "Library", ".cache", ".config", ".idea", ".vscode",
	}
	DefaultExcludeFiles = []string{".DS_Store", "thumbs.db"}
)

// Exclusions decides which names the crawler ignores. Directory names match
// exactly and prune the whole subtree; file names match case-insensitively.
type Exclusions struct {
	dirs  map[string]struct{}
	files map[string]struct{}
}

func NewExclusions(dirs, files []string) Exclusions {
	if dirs == nil {
		dirs = DefaultExcludeDirs
	}
	if files == nil {
		files = DefaultExcludeFiles
	}
	ex := Exclusions{
		dirs:  make(map[string]struct{}, len(dirs)),
		files: make(map[string]struct{}, len(files)),
	}
	for _, d := range dirs {
		if d = strings.TrimSpace(d); d != "" {
			ex.dirs[d] = struct{}{}
		}
	}
	for _, f := range files {
		if f = strings.TrimSpace(f); f != "" {
			ex.files[strings.ToLower(f)] = struct{}{}
		}
	}
	return ex
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func (e Exclusions) SkipDir(name string) bool {
	if hidden(name) {
		return true
	}
	_, ok := e.dirs[name]
	return ok
}

func (e Exclusions) SkipFile(name string) bool {
	if hidden(name) {
		return true
	}
	_, ok := e.files[strings.ToLower(name)]
	return ok
}
