package site

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned when the registry has no entry for a site id.
	ErrNotFound = errors.New("site not found in registry")
)

var validate = validator.New()

// Site is a registered site as used by the fetch/render/mail pipeline.
// Values are only produced by a successful registry lookup.
type Site struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	APIKey     string  `json:"-"`
	Timezone   int     `json:"timezone"` // UTC offset in hours
	ClientName string  `json:"client_name"`

	// Dir is the per-site data directory (<sites root>/<id>).
	Dir string `json:"-"`
}

// entry mirrors one element of the registry file.
type entry struct {
	ID         int     `json:"id" validate:"gte=0"`
	Name       string  `json:"name" validate:"required"`
	Latitude   float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64 `json:"longitude" validate:"gte=-180,lte=180"`
	APIKey     string  `json:"API_key" validate:"required"`
	Timezone   int     `json:"timezone" validate:"gte=-14,lte=14"`
	ClientName string  `json:"client_name"`
}

type registryFile struct {
	Sites []entry `json:"sites"`
}

// Registry holds the ordered list of site entries loaded from the registry file.
type Registry struct {
	entries   []entry
	sitesRoot string
}

// LoadRegistry reads the registry JSON file. sitesRoot is the directory under
// which every site gets its own <id> subdirectory.
func LoadRegistry(path, sitesRoot string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site registry: %w", err)
	}
	return ParseRegistry(data, sitesRoot)
}

// ParseRegistry decodes registry JSON already in memory.
func ParseRegistry(data []byte, sitesRoot string) (*Registry, error) {
	var f registryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode site registry: %w", err)
	}
	return &Registry{entries: f.Sites, sitesRoot: sitesRoot}, nil
}

// Lookup returns the first entry whose id matches exactly.
func (r *Registry) Lookup(id int) (Site, error) {
	for _, e := range r.entries {
		if e.ID != id {
			continue
		}
		if err := validate.Struct(e); err != nil {
			return Site{}, fmt.Errorf("site %d: invalid registry entry: %w", id, err)
		}
		return r.toSite(e), nil
	}
	return Site{}, fmt.Errorf("site %d: %w", id, ErrNotFound)
}

// Open looks the site up and makes sure its data directory exists.
// Nothing is created on disk for an unknown id.
func (r *Registry) Open(id int) (Site, error) {
	s, err := r.Lookup(id)
	if err != nil {
		return Site{}, err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Site{}, fmt.Errorf("site %d: create data dir: %w", id, err)
	}
	return s, nil
}

// Sites returns all registered sites in file order, without validation.
func (r *Registry) Sites() []Site {
	out := make([]Site, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, r.toSite(e))
	}
	return out
}

func (r *Registry) toSite(e entry) Site {
	return Site{
		ID:         e.ID,
		Name:       e.Name,
		Latitude:   e.Latitude,
		Longitude:  e.Longitude,
		APIKey:     e.APIKey,
		Timezone:   e.Timezone,
		ClientName: e.ClientName,
		Dir:        filepath.Join(r.sitesRoot, strconv.Itoa(e.ID)),
	}
}
