package shape

// Variant tags what a Rule checks.
type Variant int

// Rule variants.
const (
	// VariantEnum requires Field to be one of Values.
	VariantEnum Variant = iota
	// VariantItemEnum requires Sub of every element of the Field array to
	// be one of Values.
	VariantItemEnum
	// VariantDate requires Field to be YYYY, YYYY-MM or YYYY-MM-DD.
	VariantDate
	// VariantDateTime requires Field to be a timestamp with offset.
	VariantDateTime
	// VariantObject requires Field to be a JSON object.
	VariantObject
	// VariantString requires Field to be a JSON string.
	VariantString
	// VariantArray requires Field to be a JSON array.
	VariantArray
	// VariantNonNegative requires Field to be a number >= 0.
	VariantNonNegative
)

// Rule is one declarative check on a document field. Field may be a
// dotted path; Label is the human name used in messages.
type Rule struct {
	Variant Variant
	Field   string
	Sub     string
	Values  []string
	Label   string
}

// ExtensionTypeRule flags extensions whose url contains URLContains and
// that carry the value key Forbidden instead of Expected.
type ExtensionTypeRule struct {
	Name        string
	URLContains string
	Forbidden   string
	Expected    string
}

// KindRules is the capability record of one document kind.
type KindRules struct {
	Fields []string
	Rules  []Rule
}

// CommonFields are allowed on every kind.
var CommonFields = []string{
	"resourceType", "id", "meta", "implicitRules", "language",
	"text", "contained", "extension", "modifierExtension",
}

// ExtensionTypeRules apply to the top-level extensions of every kind.
var ExtensionTypeRules = []ExtensionTypeRule{
	{Name: "Religion", URLContains: "religion", Forbidden: "valueString", Expected: "valueCodeableConcept"},
	{Name: "Educational attainment", URLContains: "educational-attainment", Forbidden: "valueBoolean", Expected: "valueCodeableConcept"},
}

// DeniedExtensionURLParts mark extension URLs that are never accepted.
var DeniedExtensionURLParts = []string{"invalid-extension-url", "not-allowed"}

var (
	genders = []string{"male", "female", "other", "unknown"}

	telecomSystems = []string{"phone", "fax", "email", "pager", "url", "sms", "other"}

	encounterStatuses = []string{
		"planned", "arrived", "triaged", "in-progress", "onleave",
		"finished", "cancelled", "entered-in-error", "unknown",
	}

	observationStatuses = []string{
		"registered", "preliminary", "final", "amended", "corrected",
		"cancelled", "entered-in-error", "unknown",
	}

	medicationStatuses = []string{"active", "inactive", "entered-in-error"}
)

// Table maps a kind to its allowed fields and rules. Kinds missing from
// the table only allow CommonFields.
var Table = map[string]KindRules{
	"Patient": {
		Fields: []string{
			"identifier", "active", "name", "telecom", "gender", "birthDate",
			"deceasedBoolean", "deceasedDateTime", "address", "maritalStatus",
			"multipleBirthBoolean", "multipleBirthInteger", "photo", "contact",
			"communication", "generalPractitioner", "managingOrganization", "link",
		},
		Rules: []Rule{
			{Variant: VariantEnum, Field: "gender", Values: genders, Label: "gender"},
			{Variant: VariantDate, Field: "birthDate", Label: "birth date"},
			{Variant: VariantDateTime, Field: "deceasedDateTime", Label: "deceased date"},
			{Variant: VariantItemEnum, Field: "telecom", Sub: "system", Values: telecomSystems, Label: "telecom system"},
			{Variant: VariantObject, Field: "maritalStatus"},
			{Variant: VariantArray, Field: "name"},
			{Variant: VariantArray, Field: "identifier"},
		},
	},
	"Encounter": {
		Fields: []string{
			"identifier", "status", "statusHistory", "class", "classHistory",
			"type", "serviceType", "priority", "subject", "episodeOfCare",
			"basedOn", "participant", "appointment", "period", "length",
			"reasonCode", "reasonReference", "diagnosis", "account",
			"hospitalization", "location", "serviceProvider", "partOf",
		},
		Rules: []Rule{
			{Variant: VariantEnum, Field: "status", Values: encounterStatuses, Label: "status"},
			{Variant: VariantObject, Field: "class"},
			{Variant: VariantObject, Field: "subject"},
			{Variant: VariantObject, Field: "period"},
		},
	},
	"Observation": {
		Fields: []string{
			"identifier", "basedOn", "partOf", "status", "category", "code",
			"subject", "focus", "encounter", "effectiveDateTime",
			"effectivePeriod", "effectiveInstant", "issued", "performer",
			"valueQuantity", "valueCodeableConcept", "valueString",
			"valueBoolean", "valueInteger", "valueRange", "valueRatio",
			"valueSampledData", "valueTime", "valueDateTime", "valuePeriod",
			"dataAbsentReason", "interpretation", "note", "bodySite", "method",
			"specimen", "device", "referenceRange", "hasMember", "derivedFrom",
			"component",
		},
		Rules: []Rule{
			{Variant: VariantEnum, Field: "status", Values: observationStatuses, Label: "status"},
			{Variant: VariantObject, Field: "code"},
			{Variant: VariantObject, Field: "subject"},
			{Variant: VariantDateTime, Field: "effectiveDateTime", Label: "effective date"},
			{Variant: VariantDateTime, Field: "issued", Label: "issued"},
			{Variant: VariantObject, Field: "valueQuantity"},
			{Variant: VariantNonNegative, Field: "valueQuantity.value"},
		},
	},
	"Medication": {
		Fields: []string{
			"identifier", "code", "status", "manufacturer", "form", "amount",
			"ingredient", "batch",
		},
		Rules: []Rule{
			{Variant: VariantEnum, Field: "status", Values: medicationStatuses, Label: "status"},
			{Variant: VariantObject, Field: "code"},
			{Variant: VariantObject, Field: "amount"},
		},
	},
}

// allowedIn returns the set of top-level fields allowed on a kind. Unknown
// kinds allow only CommonFields.
func allowedIn(table map[string]KindRules, kind string) map[string]bool {
	fields := table[kind].Fields
	allowed := make(map[string]bool, len(CommonFields)+len(fields))
	for _, f := range CommonFields {
		allowed[f] = true
	}
	for _, f := range fields {
		allowed[f] = true
	}
	return allowed
}
