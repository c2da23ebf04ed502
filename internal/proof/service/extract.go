package service

import "sort"

// noiseKeys are the schema and definition identifiers the platform repeats on
// every verified attribute entry.
var noiseKeys = map[string]struct{}{
	"schemaId":               {},
	"credDefId":              {},
	"credentialDefinitionId": {},
	"schema_id":              {},
	"cred_def_id":            {},
}

// ExtractPresentedAttributes folds verified attribute entries into one flat
// map. Each entry contributes its attribute after noise keys are stripped.
//
// When the same attribute name appears in several entries (several
// credentials disclosed in one presentation) the later entry wins. That is a
// known ambiguity kept as-is, not a merge policy.
func ExtractPresentedAttributes(entries []map[string]any) map[string]any {
	out := make(map[string]any, len(entries))
	for _, entry := range entries {
		keys := make([]string, 0, len(entry))
		for k := range entry {
			if _, noise := noiseKeys[k]; noise {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = entry[k]
		}
	}
	return out
}
