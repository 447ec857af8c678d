// Package dialect describes how each supported database paginates and binds parameters.
package dialect

import (
	"fmt"
	"sort"
	"sync"

	sq "github.com/Masterminds/squirrel"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// Pagination rewrites an assembled query so it returns one page window.
// It returns the rewritten SQL and the values of the reserved tokens it introduced.
type Pagination interface {
	Paginate(sqlText string, page models.Page, ordered bool) (string, map[string]any)
}

// Dialect bundles the SQL conventions of one database.
type Dialect struct {
	Name        string
	DisplayName string
	// Placeholder converts ? markers into the driver's positional syntax.
	Placeholder sq.PlaceholderFormat
	Pagination  Pagination
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Dialect)
)

// Register adds or replaces a dialect. Built-in dialects register themselves in init().
func Register(d Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name] = d
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := registry[name]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported dialect %q", name)
	}
	return d, nil
}

// MustGet is Get for names known to be registered, such as the built-in constants.
func MustGet(name string) Dialect {
	d, err := Get(name)
	if err != nil {
		panic(err)
	}
	return d
}

// IsRegistered checks if a dialect is available.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// Names returns the registered dialect names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
