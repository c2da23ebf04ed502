package credtypes

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type typeEntry struct {
	Name                   string `mapstructure:"name"`
	SchemaID               string `mapstructure:"schema_id"`
	CredentialDefinitionID string `mapstructure:"cred_def_id"`
}

// LoadRegistry reads the credential type mapping file. Type names are kept
// verbatim, so the file uses a list rather than a map (viper lower-cases keys):
//
//	credential_types:
//	  - name: Student Card
//	    schema_id: "..."
//	    cred_def_id: "..."
//
// An empty path yields an empty registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(nil), nil
	}
	vp, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var entries []typeEntry
	if err := vp.UnmarshalKey("credential_types", &entries); err != nil {
		return nil, fmt.Errorf("decode credential_types in %s: %w", path, err)
	}

	types := make(map[string]Mapping, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("credential_types[%d] in %s has no name", i, path)
		}
		if _, dup := types[name]; dup {
			return nil, fmt.Errorf("credential type %q defined twice in %s", name, path)
		}
		types[name] = Mapping{
			SchemaID:               optional(e.SchemaID),
			CredentialDefinitionID: optional(e.CredentialDefinitionID),
		}
	}
	return NewRegistry(types), nil
}

// LoadDescriptors reads the default attribute descriptor list:
//
//	attributes:
//	  - name: surname
//	    credential_type: Student Card
//	  - name: email
func LoadDescriptors(path string) ([]Descriptor, error) {
	if path == "" {
		return nil, nil
	}
	vp, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var descriptors []Descriptor
	if err := vp.UnmarshalKey("attributes", &descriptors); err != nil {
		return nil, fmt.Errorf("decode attributes in %s: %w", path, err)
	}
	return descriptors, nil
}

// optional treats a blank identifier as absent.
func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func readFile(path string) (*viper.Viper, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return vp, nil
}
