package config

import "github.com/WilliamM-L/trouve-mon-spot/pkg/connector"

// Built-in job values used when neither the job file nor a flag sets them.
const (
	DefaultJobName         = "signalisation-stationnement"
	DefaultInputPath       = "data/signalisation_stationnement.geojson.json"
	DefaultOutputPath      = "clean_data/signalisation_stationnement_cleaned.geojson.json"
	DefaultExclusionScope  = connector.ScopeDesignatedField
	DefaultDesignatedField = "DESCRIPTION_RPA"
)

// allPropertiesPatterns are matched against every string property.
// `\P` is a literal backslash followed by P, as it appears in the source data.
var allPropertiesPatterns = []string{
	"PANONCEAU EXCEPTE PERIODE INTERDITE",
	"PANONCEAU ZONE DE REMORQUAGE",
	"PANONCEAU DEBAR. SEULEMENT",
	`\P LIVRAISON SEULEMENT EN TOUT TEMPS`,
	`\P RESERVE TAXIS`,
	`\P EXCEPTE DEBARCADERE AUTOBUS TOURISTIQUE`,
	`\P RESERVE AUTOBUS TOURISTIQUES`,
	"P 5 MIN.",
	`\P RESERVE DEBARCADERE HANDICAPES EN TOUT TEMPS`,
}

// designatedFieldPatterns are matched against DefaultDesignatedField only.
var designatedFieldPatterns = []string{
	"PANONCEAU",
	"EN TOUT TEMPS",
	"RESERVE TAXIS",
	"RESERVE AUTOBUS TOURISTIQUES",
	"EXCEPTE DEBARCADERE AUTOBUS TOURISTIQUE",
	"P 5 MIN.",
	"LIVRAISON SEULEMENT",
}

var propertyAllowlist = []string{
	"DESCRIPTION_RPA",
	"DESCRIPTION_CAT",
	"DESCRIPTION_REP",
	"longitude",
	"latitude",
	"NOM_ARROND",
}

// DefaultPatterns returns a copy of the fragment list for scope, or nil for an
// unknown scope.
func DefaultPatterns(scope string) []string {
	switch scope {
	case connector.ScopeAllProperties:
		return append([]string(nil), allPropertiesPatterns...)
	case connector.ScopeDesignatedField:
		return append([]string(nil), designatedFieldPatterns...)
	default:
		return nil
	}
}

// DefaultAllowlist returns a copy of the retained property names.
func DefaultAllowlist() []string {
	return append([]string(nil), propertyAllowlist...)
}

// DefaultJob returns a job populated entirely from built-in values.
func DefaultJob() *connector.Job {
	return &connector.Job{
		Name:              DefaultJobName,
		InputPath:         DefaultInputPath,
		OutputPath:        DefaultOutputPath,
		ExclusionScope:    DefaultExclusionScope,
		DesignatedField:   DefaultDesignatedField,
		ExclusionPatterns: DefaultPatterns(DefaultExclusionScope),
		PropertyAllowlist: DefaultAllowlist(),
	}
}
