package providers

import (
	"sort"

	types "github.com/yungbote/unifind-backend/internal/domain"
)

type Registry struct {
	adapters map[types.StorageType]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[types.StorageType]Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Source()] = a
		}
	}
	return r
}

func (r *Registry) Get(source types.StorageType) (Adapter, bool) {
	a, ok := r.adapters[source]
	return a, ok
}

// SourcesFor lists the registered sources one provider account can serve.
func (r *Registry) SourcesFor(p types.Provider) []types.StorageType {
	var out []types.StorageType
	for st, a := range r.adapters {
		if a.Provider() == p {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
