package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("pricing")

// ErrUnknownCode signals a set-active request for a product code that is not
// in the catalog
var ErrUnknownCode = errors.New("unknown product code")

// ErrUnknownFamily signals a pricing family other than nci or nus
var ErrUnknownFamily = errors.New("unknown pricing family")

// Rate is one priced product code
type Rate struct {
	Name       string  `json:"name"`
	HourlyRate float64 `json:"hourly_rate"`
	AnnualRate float64 `json:"annual_rate"`
	Unit       string  `json:"unit"`
}

// ActiveCodes names the product code currently applied per family
type ActiveCodes struct {
	NCI string `json:"nci"`
	NUS string `json:"nus"`
}

// Catalog is the full pricing state persisted to the pricing file. NCI rates
// are per core, NUS rates per TiB of file storage.
type Catalog struct {
	NCI    map[string]Rate `json:"nci"`
	NUS    map[string]Rate `json:"nus"`
	Active ActiveCodes     `json:"active"`
}

// store holds the pricing catalog in memory, backed by a JSON file. A missing
// file yields an empty catalog rather than an error: dark sites start without
// negotiated rates.
type store struct {
	path string

	mut     sync.RWMutex
	catalog Catalog
}

// NewStore creates a new pricing store, loading the catalog when the file
// exists
func NewStore(path string) (*store, error) {
	if len(path) == 0 {
		return nil, errors.New("empty pricing file path")
	}

	s := &store{
		path: path,
		catalog: Catalog{
			NCI: make(map[string]Rate),
			NUS: make(map[string]Rate),
		},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	err = json.Unmarshal(data, &s.catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pricing file: %w", err)
	}
	if s.catalog.NCI == nil {
		s.catalog.NCI = make(map[string]Rate)
	}
	if s.catalog.NUS == nil {
		s.catalog.NUS = make(map[string]Rate)
	}

	log.Debug("pricing catalog loaded", "nci codes", len(s.catalog.NCI), "nus codes", len(s.catalog.NUS))

	return s, nil
}

// Catalog returns a copy of the current catalog
func (s *store) Catalog() Catalog {
	s.mut.RLock()
	defer s.mut.RUnlock()

	out := Catalog{
		NCI:    make(map[string]Rate, len(s.catalog.NCI)),
		NUS:    make(map[string]Rate, len(s.catalog.NUS)),
		Active: s.catalog.Active,
	}
	for code, rate := range s.catalog.NCI {
		out.NCI[code] = rate
	}
	for code, rate := range s.catalog.NUS {
		out.NUS[code] = rate
	}

	return out
}

// AddRate inserts or replaces one product code and persists the catalog
func (s *store) AddRate(family string, code string, rate Rate) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	switch family {
	case "nci":
		s.catalog.NCI[code] = rate
	case "nus":
		s.catalog.NUS[code] = rate
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}

	return s.save()
}

// SetActive marks one catalog code as the applied rate for its family and
// persists the catalog
func (s *store) SetActive(family string, code string) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	switch family {
	case "nci":
		if _, ok := s.catalog.NCI[code]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCode, code)
		}
		s.catalog.Active.NCI = code
	case "nus":
		if _, ok := s.catalog.NUS[code]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCode, code)
		}
		s.catalog.Active.NUS = code
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}

	return s.save()
}

// ActiveRates returns the currently applied per-core and per-TiB rates; the
// booleans report whether an active code is set per family
func (s *store) ActiveRates() (Rate, bool, Rate, bool) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	nci, nciOK := s.catalog.NCI[s.catalog.Active.NCI]
	nus, nusOK := s.catalog.NUS[s.catalog.Active.NUS]

	return nci, nciOK, nus, nusOK
}

// save writes through a temp file and renames, mirroring the export writer's
// crash-safety behavior; callers hold the write lock
func (s *store) save() error {
	data, err := json.MarshalIndent(s.catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode pricing catalog: %w", err)
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create pricing directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pricing_*")
	if err != nil {
		return fmt.Errorf("failed to create temp pricing file: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write pricing file: %w", err)
	}

	return os.Rename(tmpPath, s.path)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *store) IsInterfaceNil() bool {
	return s == nil
}
