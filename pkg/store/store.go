// Package store holds the FHIR resources the validator serves and indexes.
//
// Resources are loaded from directories of JSON/YAML files, FHIR NPM
// package tarballs, or a Postgres table. The store answers the three
// lookups the rest of the system needs: by kind and id, by kind, and by
// canonical URL.
package store

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when a lookup matches no resource.
var ErrNotFound = errors.New("resource not found")

// Resource is one loaded FHIR resource.
type Resource struct {
	// Kind is the resourceType.
	Kind string

	// ID is the logical id.
	ID string

	// URL is the canonical URL, empty for non-conformance resources.
	URL string

	// Content is the decoded resource tree. Callers must not mutate it.
	Content map[string]any

	// Raw is the resource encoded as JSON.
	Raw []byte

	// Source names where the resource was read from.
	Source string
}

// Key returns "Kind/ID".
func (r *Resource) Key() string {
	return r.Kind + "/" + r.ID
}

// Store is an in-memory resource index. It is filled once at startup and
// read concurrently afterwards.
type Store struct {
	mu     sync.RWMutex
	byKey  map[string]*Resource
	order  []string
	byKind map[string][]*Resource
	byURL  map[string]*Resource
}

// New creates an empty store.
func New() *Store {
	return &Store{
		byKey:  make(map[string]*Resource),
		byKind: make(map[string][]*Resource),
		byURL:  make(map[string]*Resource),
	}
}

// Add indexes a decoded resource. It reports false when the content lacks
// resourceType or id. A resource with the same Kind/ID replaces the
// earlier one in place.
func (s *Store) Add(content map[string]any, raw []byte, source string) (*Resource, bool) {
	kind, _ := content["resourceType"].(string)
	id, _ := content["id"].(string)
	if kind == "" || id == "" {
		return nil, false
	}
	url, _ := content["url"].(string)

	res := &Resource{
		Kind:    kind,
		ID:      id,
		URL:     url,
		Content: content,
		Raw:     raw,
		Source:  source,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := res.Key()
	if prev, ok := s.byKey[key]; ok {
		list := s.byKind[kind]
		for i, r := range list {
			if r == prev {
				list[i] = res
				break
			}
		}
		if prev.URL != "" && s.byURL[prev.URL] == prev {
			delete(s.byURL, prev.URL)
		}
	} else {
		s.order = append(s.order, key)
		s.byKind[kind] = append(s.byKind[kind], res)
	}
	s.byKey[key] = res
	if url != "" {
		s.byURL[url] = res
	}
	return res, true
}

// Get returns the resource with the given kind and id.
func (s *Store) Get(kind, id string) (*Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.byKey[kind+"/"+id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s/%s", kind, id)
	}
	return res, nil
}

// ByURL returns the resource with the given canonical URL.
func (s *Store) ByURL(url string) (*Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.byURL[url]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "url %s", url)
	}
	return res, nil
}

// ByKind returns all resources of a kind in load order.
func (s *Store) ByKind(kind string) []*Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byKind[kind]
	out := make([]*Resource, len(list))
	copy(out, list)
	return out
}

// All returns every resource in load order.
func (s *Store) All() []*Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Resource, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.byKey[key])
	}
	return out
}

// Kinds returns the loaded resource kinds, sorted.
func (s *Store) Kinds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kinds := make([]string, 0, len(s.byKind))
	for k := range s.byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Count returns the number of resources held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// CountByKind returns the number of resources per kind.
func (s *Store) CountByKind() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.byKind))
	for k, list := range s.byKind {
		counts[k] = len(list)
	}
	return counts
}
