package table

import (
	"github.com/kong/ctable/internal/datasource"
)

// SortFunc is a bespoke ordering registered on a Definition for one sort key.
type SortFunc func(src datasource.Source) (datasource.Source, error)

// ResolveSort applies key to src. An empty key leaves src untouched. A SortFunc
// registered for key on def wins; otherwise src is ordered ascending by the
// field named key, and an unknown field fails in the data source.
func ResolveSort(def *Definition, src datasource.Source, key string) (datasource.Source, error) {
	if key == "" {
		return src, nil
	}
	if def != nil {
		if sorter := def.sorter(key); sorter != nil {
			return sorter(src)
		}
	}
	return src.OrderBy(key)
}
