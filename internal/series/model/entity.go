package model

// EntityKind names one of the reference entity tables a dataset is
// keyed by.
type EntityKind string

const (
	EntityProcedure  EntityKind = "procedure"
	EntityPhenomenon EntityKind = "phenomenon"
	EntityFeature    EntityKind = "feature"
	EntityPlatform   EntityKind = "platform"
	EntityOffering   EntityKind = "offering"
	EntityCategory   EntityKind = "category"
	EntityService    EntityKind = "service"
)

// Entity is a reference entity (procedure, phenomenon, feature,
// platform, offering, category, service) resolved by the lookup store.
type Entity struct {
	ID         int64
	Kind       EntityKind
	Identifier string
	Name       string
	// Translations maps locale codes to localized names.
	Translations map[string]string

	// Reference marks procedures whose datasets are baseline series.
	Reference bool

	// NoDataValues is set on service entities: raw payloads equal to
	// one of these mean "explicitly no measurement".
	NoDataValues []string
}

// LabelFor returns the localized name for the given locale, falling
// back to the default name and lastly the identifier.
func (e *Entity) LabelFor(locale string) string {
	if locale != "" {
		if name, ok := e.Translations[locale]; ok && name != "" {
			return name
		}
	}
	if e.Name != "" {
		return e.Name
	}
	return e.Identifier
}
