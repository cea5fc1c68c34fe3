package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/logging"
)

//go:embed data/atc_products.json data/opioids.json
var embedded embed.FS

const (
	embeddedCatalogPath    = "data/atc_products.json"
	embeddedReferencesPath = "data/opioids.json"
)

// Loader reads the catalog and reference table from files, or from the embedded
// defaults when no path is configured.
type Loader struct {
	catalogFile    string
	referencesFile string
}

// NewLoader creates a loader. Empty paths select the embedded data.
func NewLoader(catalogFile, referencesFile string) *Loader {
	return &Loader{
		catalogFile:    catalogFile,
		referencesFile: referencesFile,
	}
}

// Source describes where the catalog is read from
func (l *Loader) Source() string {
	if l.catalogFile == "" {
		return "embedded"
	}
	return l.catalogFile
}

// Load reads and decodes both tables.
func (l *Loader) Load() (*entities.Catalog, []entities.OpioidReference, error) {
	catalogBytes, err := l.read(l.catalogFile, embeddedCatalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	catalog, err := ParseCatalog(bytes.NewReader(catalogBytes))
	if err != nil {
		return nil, nil, err
	}

	refBytes, err := l.read(l.referencesFile, embeddedReferencesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read opioid references: %w", err)
	}

	refs, err := ParseReferences(bytes.NewReader(refBytes))
	if err != nil {
		return nil, nil, err
	}

	logging.Debug("Catalog loaded",
		"source", l.Source(),
		"products", len(catalog.Products),
		"references", len(refs),
	)

	return catalog, refs, nil
}

func (l *Loader) read(path, embeddedPath string) ([]byte, error) {
	if path == "" {
		return embedded.ReadFile(embeddedPath)
	}

	cleanPath := filepath.Clean(path)
	if filepath.Ext(cleanPath) != ".json" {
		return nil, fmt.Errorf("invalid file path %s: expected a .json file", path)
	}
	return os.ReadFile(cleanPath)
}

// Default loads the embedded catalog and reference table.
func Default() (*entities.Catalog, []entities.OpioidReference, error) {
	return NewLoader("", "").Load()
}
