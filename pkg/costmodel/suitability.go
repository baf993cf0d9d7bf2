package costmodel

import (
	"github.com/veloreach/veloreach/pkg/datastructure"
)

// Tags is the categorical tag mapping attached to a raw way. Missing
// keys are treated as non-matching.
type Tags map[string]string

func (t Tags) Highway() string {
	return t["highway"]
}

func (t Tags) Bicycle() string {
	return t["bicycle"]
}

var cyclewayVariantKeys = []string{
	"cycleway",
	"cycleway:left",
	"cycleway:right",
	"cycleway:both",
}

// painted or shared lane markings on a carriageway
var laneCyclewayValues = map[string]struct{}{
	"lane":          {},
	"shared_lane":   {},
	"share_busway":  {},
	"opposite_lane": {},
}

var bicycleAllowedValues = map[string]struct{}{
	"yes":        {},
	"designated": {},
	"permissive": {},
}

// ClassifySuitability maps way tags to a discrete cycling-friendliness
// class. Rules are evaluated in order, first match wins:
//
//  1. dedicated cycle path                          -> good
//  2. residential / living street                   -> medium
//  3. painted or shared cycle lane on the road      -> medium
//  4. footway with explicit bicycle access          -> medium
//  5. anything else                                 -> low
func ClassifySuitability(tags Tags) datastructure.Suitability {
	if tags.Highway() == "cycleway" {
		return datastructure.SuitabilityGood
	}

	switch tags.Highway() {
	case "residential", "living_street":
		return datastructure.SuitabilityMedium
	}

	for _, key := range cyclewayVariantKeys {
		if _, ok := laneCyclewayValues[tags[key]]; ok {
			return datastructure.SuitabilityMedium
		}
	}

	if tags.Highway() == "footway" {
		if _, ok := bicycleAllowedValues[tags.Bicycle()]; ok {
			return datastructure.SuitabilityMedium
		}
	}

	return datastructure.SuitabilityLow
}
