package cvxml

import (
	"os"
	"path"
	"path/filepath"

	"cvmigrate/internal/domain"
)

// FileResolver resolves nested-view resource URIs against a set of
// directories holding .calculationview files. Parsed views are cached: a
// batch run traces many fields through the same handful of sub-views.
type FileResolver struct {
	dirs  []string
	cache map[string]*domain.ViewDefinition
}

// NewFileResolver returns a resolver searching the given directories in
// order.
func NewFileResolver(dirs ...string) *FileResolver {
	return &FileResolver{dirs: dirs, cache: map[string]*domain.ViewDefinition{}}
}

// ResolveView maps a resource URI (a repository path like
// "/pkg/views/MY_VIEW") to a view file and parses it. The last URI segment
// names the file, with or without the .calculationview suffix.
func (r *FileResolver) ResolveView(resourceURI string) (*domain.ViewDefinition, error) {
	if resourceURI == "" {
		return nil, domain.ErrNotFound("nested view reference has no resource URI")
	}
	if v, ok := r.cache[resourceURI]; ok {
		return v, nil
	}

	name := path.Base(resourceURI)
	candidates := []string{name}
	if filepath.Ext(name) == "" {
		candidates = append(candidates, name+".calculationview")
	}
	for _, dir := range r.dirs {
		for _, c := range candidates {
			p := filepath.Join(dir, c)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			v, err := ParseFile(p)
			if err != nil {
				return nil, err
			}
			r.cache[resourceURI] = v
			return v, nil
		}
	}
	return nil, domain.ErrNotFound("no view file found for resource %q", resourceURI)
}
