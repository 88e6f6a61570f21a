// Package template loads and resolves Templates: a read-mostly cache over
// a YAML-backed template file, with explicit reload and AMI-alias
// resolution.
package template

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/types"
)

// fileTemplate is the YAML-on-disk shape for one template entry; it is
// converted to types.Template (and validated) on load.
type fileTemplate struct {
	TemplateID         string             `yaml:"template_id"`
	Strategy           string             `yaml:"strategy"`
	MaxNumber          int                `yaml:"max_number"`
	ImageID            string             `yaml:"image_id"`
	SingleSubnet       string             `yaml:"subnet_id,omitempty"`
	SubnetSet          []string           `yaml:"subnet_ids,omitempty"`
	SingleType         string             `yaml:"instance_type,omitempty"`
	TypeWeight         map[string]float64 `yaml:"instance_type_weights,omitempty"`
	SecurityGroupIDs   []string           `yaml:"security_group_ids"`
	KeyName            string             `yaml:"key_name,omitempty"`
	UserData           string             `yaml:"user_data,omitempty"`
	SpotRoleARN        string             `yaml:"spot_role_arn,omitempty"`
	MaxPrice           *float64           `yaml:"max_price,omitempty"`
	AllocationStrategy string             `yaml:"allocation_strategy,omitempty"`
	Tags               map[string]string  `yaml:"tags,omitempty"`
}

type fileDocument struct {
	Templates []fileTemplate `yaml:"templates"`
}

// Store is a read-mostly cache over the template file. It resolves AMI
// aliases at load time and holds the result indefinitely until Reload is
// called explicitly — the file is never re-read on a lookup miss.
type Store struct {
	path     string
	resolver AMIResolver

	mu        sync.RWMutex
	templates map[string]types.Template
}

// AMIResolver turns a Template's ImageID field — a literal AMI id or an
// alias — into a concrete AMI id. NewAliasResolver provides a static
// in-memory/YAML-backed implementation; an SSM-backed implementation is a
// documented extension point that this package does not ship (see
// DESIGN.md).
type AMIResolver interface {
	Resolve(imageIDOrAlias string) (string, error)
}

// NewStore builds a Store and performs the initial load.
func NewStore(path string, resolver AMIResolver) (*Store, error) {
	s := &Store{path: path, resolver: resolver}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the template file from disk, re-resolves every AMI
// alias, and atomically swaps the in-memory cache. A failed reload leaves
// the previous cache in place.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return brokererr.Storage("template reload", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return brokererr.Wrap(brokererr.KindStorage, "parse template file", err)
	}

	next := make(map[string]types.Template, len(doc.Templates))
	for _, ft := range doc.Templates {
		tmpl, err := ft.toDomain(s.resolver)
		if err != nil {
			return err
		}
		if err := tmpl.Validate(); err != nil {
			return brokererr.Wrap(brokererr.KindValidation, fmt.Sprintf("template %q", tmpl.TemplateID), err)
		}
		if _, dup := next[tmpl.TemplateID]; dup {
			return brokererr.Validation("duplicate template id %q", tmpl.TemplateID)
		}
		next[tmpl.TemplateID] = tmpl
	}

	s.mu.Lock()
	s.templates = next
	s.mu.Unlock()
	return nil
}

// Get returns the Template for id, or a NotFound error.
func (s *Store) Get(id string) (types.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.templates[id]
	if !ok {
		return types.Template{}, brokererr.NotFound("Template", id)
	}
	return tmpl, nil
}

// List returns every known template, in no particular order.
func (s *Store) List() []types.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Template, 0, len(s.templates))
	for _, tmpl := range s.templates {
		out = append(out, tmpl)
	}
	return out
}

func (ft fileTemplate) toDomain(resolver AMIResolver) (types.Template, error) {
	imageID := ft.ImageID
	if resolver != nil {
		resolved, err := resolver.Resolve(ft.ImageID)
		if err != nil {
			return types.Template{}, brokererr.Wrap(brokererr.KindValidation,
				fmt.Sprintf("resolve image for template %q", ft.TemplateID), err)
		}
		imageID = resolved
	}

	return types.Template{
		TemplateID: ft.TemplateID,
		Strategy:   types.ProviderStrategy(ft.Strategy),
		MaxNumber:  ft.MaxNumber,
		ImageID:    imageID,
		Network: types.NetworkPlacement{
			SingleSubnet: ft.SingleSubnet,
			SubnetSet:    ft.SubnetSet,
		},
		MachineType: types.MachineTypeSpec{
			SingleType: ft.SingleType,
			TypeWeight: ft.TypeWeight,
		},
		SecurityGroupIDs:   ft.SecurityGroupIDs,
		KeyName:            ft.KeyName,
		UserData:           ft.UserData,
		SpotRoleARN:        ft.SpotRoleARN,
		MaxPrice:           ft.MaxPrice,
		AllocationStrategy: types.AllocationStrategy(ft.AllocationStrategy),
		Tags:               ft.Tags,
	}, nil
}
