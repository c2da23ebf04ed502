// Package credtypes holds the static credential-type registry and turns
// declarative attribute descriptors into presentation-request constraints.
//
// One presentation request may mix attributes from several credential types:
// each descriptor names its own type, or none for an unconstrained attribute.
package credtypes

import (
	"sort"
	"strings"

	dErrors "credbridge/pkg/domain-errors"
)

// AttributeConstraint is one requested attribute. SchemaID and
// CredentialDefinitionID are independently optional; nil means "any".
type AttributeConstraint struct {
	AttributeName          string  `json:"attributeName"`
	SchemaID               *string `json:"schemaId,omitempty"`
	CredentialDefinitionID *string `json:"credentialDefinitionId,omitempty"`
}

// Mapping pins a credential type to platform identifiers. A mapping may carry
// only one of the two.
type Mapping struct {
	SchemaID               *string
	CredentialDefinitionID *string
}

// Descriptor is a declarative attribute request entry.
type Descriptor struct {
	Name               string `json:"name" mapstructure:"name"`
	CredentialTypeName string `json:"credentialTypeName,omitempty" mapstructure:"credential_type"`
}

// Registry maps credential type names to their identifiers. It is built once
// at startup and read-only afterwards.
type Registry struct {
	types map[string]Mapping
}

// NewRegistry copies types into a registry keyed by trimmed type name.
func NewRegistry(types map[string]Mapping) *Registry {
	r := &Registry{types: make(map[string]Mapping, len(types))}
	for name, m := range types {
		r.types[strings.TrimSpace(name)] = Mapping{
			SchemaID:               nonEmpty(m.SchemaID),
			CredentialDefinitionID: nonEmpty(m.CredentialDefinitionID),
		}
	}
	return r
}

// Lookup returns the mapping for a credential type name.
func (r *Registry) Lookup(name string) (Mapping, bool) {
	if r == nil {
		return Mapping{}, false
	}
	m, ok := r.types[strings.TrimSpace(name)]
	return m, ok
}

// Names lists the registered credential types in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildProofAttributeRequests resolves descriptors against the registry. The
// output has the same length and order as the input. A descriptor naming an
// unregistered credential type fails the whole build with a configuration
// error; nothing is silently dropped.
func BuildProofAttributeRequests(descriptors []Descriptor, registry *Registry) ([]AttributeConstraint, error) {
	out := make([]AttributeConstraint, 0, len(descriptors))
	for i, d := range descriptors {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, dErrors.Newf(dErrors.CodeValidation, "attribute descriptor %d has no name", i)
		}
		constraint := AttributeConstraint{AttributeName: name}

		typeName := strings.TrimSpace(d.CredentialTypeName)
		if typeName != "" {
			m, ok := registry.Lookup(typeName)
			if !ok {
				return nil, dErrors.Newf(dErrors.CodeConfiguration,
					"unknown credential type %q for attribute %q", typeName, name)
			}
			constraint.SchemaID = copyString(m.SchemaID)
			constraint.CredentialDefinitionID = copyString(m.CredentialDefinitionID)
		}
		out = append(out, constraint)
	}
	return out, nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
