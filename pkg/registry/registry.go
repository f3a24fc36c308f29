// Package registry indexes the conformance resources a validator needs:
// profiles (StructureDefinitions), ValueSets and CodeSystems, each keyed
// by canonical URL.
//
// An Index is built once and never mutated, so any number of goroutines
// may read it without locking.
package registry

import (
	"encoding/json"
	"sort"

	"github.com/gofhir/fhir/r4"

	"github.com/phcore/validator/pkg/logger"
	"github.com/phcore/validator/pkg/store"
)

// Conformance resource kinds.
const (
	KindStructureDefinition = "StructureDefinition"
	KindValueSet            = "ValueSet"
	KindCodeSystem          = "CodeSystem"
)

// Profile is an indexed StructureDefinition.
type Profile struct {
	URL         string
	ID          string
	Name        string
	Title       string
	Type        string
	Kind        string
	Status      string
	Description string

	// Elements is the differential in declaration order.
	Elements []ElementConstraint

	// Content is the raw resource tree.
	Content map[string]any

	groups []Group
}

// Groups returns the differential grouped by path in first-seen order.
func (p *Profile) Groups() []Group {
	return p.groups
}

// ValueSet is an indexed ValueSet.
type ValueSet struct {
	URL     string
	Name    string
	Codes   int
	Content map[string]any
}

// CodeSystem is an indexed CodeSystem.
type CodeSystem struct {
	URL      string
	Name     string
	Concepts int
	Content  map[string]any
}

// ProfileInfo is the public summary of a profile.
type ProfileInfo struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Stats reports index sizes. Codes and Concepts total the enumerated codes
// of every value set and code system.
type Stats struct {
	Profiles    int `json:"profiles"`
	ValueSets   int `json:"valueSets"`
	CodeSystems int `json:"codeSystems"`
	Codes       int `json:"codes"`
	Concepts    int `json:"concepts"`
}

// Source is the part of the resource store an Index is built from.
type Source interface {
	ByKind(kind string) []*store.Resource
}

// Index holds the three URL-keyed lookup tables.
type Index struct {
	profiles    map[string]*Profile
	valueSets   map[string]*ValueSet
	codeSystems map[string]*CodeSystem
}

// New builds an index from the conformance resources of a store.
func New(src Source) *Index {
	var resources []*store.Resource
	for _, kind := range []string{KindStructureDefinition, KindValueSet, KindCodeSystem} {
		resources = append(resources, src.ByKind(kind)...)
	}
	return Build(resources)
}

// Build indexes resources by kind tag. Resources without a URL and kinds
// other than StructureDefinition, ValueSet and CodeSystem are ignored.
// A later resource with the same URL replaces an earlier one.
func Build(resources []*store.Resource) *Index {
	idx := &Index{
		profiles:    make(map[string]*Profile),
		valueSets:   make(map[string]*ValueSet),
		codeSystems: make(map[string]*CodeSystem),
	}

	for _, res := range resources {
		if res == nil || res.URL == "" {
			continue
		}
		switch res.Kind {
		case KindStructureDefinition:
			idx.profiles[res.URL] = newProfile(res)
		case KindValueSet:
			idx.valueSets[res.URL] = newValueSet(res)
		case KindCodeSystem:
			idx.codeSystems[res.URL] = newCodeSystem(res)
		}
	}

	logger.Info("indexed %d StructureDefinitions", len(idx.profiles))
	logger.Info("indexed %d ValueSets", len(idx.valueSets))
	logger.Info("indexed %d CodeSystems", len(idx.codeSystems))
	return idx
}

func newProfile(res *store.Resource) *Profile {
	p := &Profile{
		URL:         res.URL,
		ID:          res.ID,
		Name:        stringField(res.Content, "name"),
		Title:       stringField(res.Content, "title"),
		Type:        stringField(res.Content, "type"),
		Kind:        stringField(res.Content, "kind"),
		Status:      stringField(res.Content, "status"),
		Description: stringField(res.Content, "description"),
		Content:     res.Content,
	}

	sd, err := decodeStructureDefinition(rawJSON(res))
	if err != nil {
		logger.Warn("profile %s: %v; indexing without differential", res.URL, err)
		return p
	}

	if t := derefString(sd.Type); t != "" {
		p.Type = t
	}
	if n := derefString(sd.Name); n != "" {
		p.Name = n
	}
	if k := convertKind(sd.Kind); k != "" {
		p.Kind = k
	}
	p.Elements = convertDifferential(sd)
	p.groups = GroupByPath(p.Elements)
	return p
}

func newValueSet(res *store.Resource) *ValueSet {
	vs := &ValueSet{
		URL:     res.URL,
		Name:    stringField(res.Content, "name"),
		Content: res.Content,
	}
	var decoded r4.ValueSet
	if err := json.Unmarshal(rawJSON(res), &decoded); err != nil {
		logger.Debug("value set %s: %v", res.URL, err)
		return vs
	}
	vs.Codes = countValueSetCodes(&decoded)
	return vs
}

func newCodeSystem(res *store.Resource) *CodeSystem {
	cs := &CodeSystem{
		URL:     res.URL,
		Name:    stringField(res.Content, "name"),
		Content: res.Content,
	}
	var decoded r4.CodeSystem
	if err := json.Unmarshal(rawJSON(res), &decoded); err != nil {
		logger.Debug("code system %s: %v", res.URL, err)
		return cs
	}
	cs.Concepts = countConcepts(decoded.Concept)
	return cs
}

// Profile returns the profile with the given canonical URL.
func (i *Index) Profile(url string) (*Profile, bool) {
	p, ok := i.profiles[url]
	return p, ok
}

// HasValueSet reports whether a value set is registered under url.
func (i *Index) HasValueSet(url string) bool {
	_, ok := i.valueSets[url]
	return ok
}

// ProfileURLs returns the indexed profile URLs, sorted.
func (i *Index) ProfileURLs() []string {
	urls := make([]string, 0, len(i.profiles))
	for url := range i.profiles {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// ProfileInfo returns the summary of one profile.
func (i *Index) ProfileInfo(url string) (ProfileInfo, bool) {
	p, ok := i.profiles[url]
	if !ok {
		return ProfileInfo{}, false
	}
	return p.Info(), true
}

// Profiles returns the summaries of every profile, sorted by URL.
func (i *Index) Profiles() []ProfileInfo {
	urls := i.ProfileURLs()
	out := make([]ProfileInfo, 0, len(urls))
	for _, url := range urls {
		out = append(out, i.profiles[url].Info())
	}
	return out
}

// Stats returns the table sizes.
func (i *Index) Stats() Stats {
	s := Stats{
		Profiles:    len(i.profiles),
		ValueSets:   len(i.valueSets),
		CodeSystems: len(i.codeSystems),
	}
	for _, vs := range i.valueSets {
		s.Codes += vs.Codes
	}
	for _, cs := range i.codeSystems {
		s.Concepts += cs.Concepts
	}
	return s
}

// Info returns the profile summary.
func (p *Profile) Info() ProfileInfo {
	return ProfileInfo{
		URL:         p.URL,
		Name:        p.Name,
		Title:       p.Title,
		Description: p.Description,
		Type:        p.Type,
		Status:      p.Status,
	}
}

func rawJSON(res *store.Resource) []byte {
	if len(res.Raw) > 0 {
		return res.Raw
	}
	data, err := json.Marshal(res.Content)
	if err != nil {
		return nil
	}
	return data
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
