package changestream

import "strings"

// EntityKindUnknown is reported for collections without a matching suffix.
const EntityKindUnknown = "unknown"

// Classification is the result of matching a collection name against the
// configured suffix list.
type Classification struct {
	Relevant   bool
	Tenant     string
	EntityKind string
}

// Classify maps a collection name to its tenant and entity kind. Suffixes
// are checked in configured order; the first match wins. A collection
// without a matching suffix is not relevant and keeps its full name as the
// tenant.
func Classify(collection string, suffixes []string) Classification {
	for _, suffix := range suffixes {
		if strings.HasSuffix(collection, suffix) {
			return Classification{
				Relevant:   true,
				Tenant:     strings.TrimSuffix(collection, suffix),
				EntityKind: strings.TrimPrefix(suffix, "_"),
			}
		}
	}

	return Classification{Tenant: collection, EntityKind: EntityKindUnknown}
}
