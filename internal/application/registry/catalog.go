package registry

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the raw stage and role data a Registry is built from
type Catalog struct {
	Stages []entity.Stage `yaml:"stages"`
	Roles  []entity.Role  `yaml:"roles"`
}

// LoadCatalog decodes a YAML catalog document
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", workflow.ErrConfiguration, err)
	}
	return &c, nil
}

// LoadCatalogFile decodes the YAML catalog at path
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open catalog: %v", workflow.ErrConfiguration, err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// DefaultCatalog returns the catalog shipped with the binary
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}
