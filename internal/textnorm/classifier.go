package textnorm

import (
	"regexp"
	"strings"
)

// AddressKind is the resolution branch a raw address belongs to.
type AddressKind int

const (
	KindEmpty AddressKind = iota
	KindRegular
	KindSingleCarrier
	KindMultiCarrier
)

func (k AddressKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindRegular:
		return "regular"
	case KindSingleCarrier:
		return "single-carrier"
	case KindMultiCarrier:
		return "multi-carrier"
	}
	return "unknown"
}

// Leading "carrier-keyword [:] name" in folded space. The name stops at the
// next delimiter.
var carrierNameRe = regexp.MustCompile(`\b(?:NHA XE|CHANH XE|HANG XE|XE)\s*[:\-]?\s*([A-Z][A-Z0-9 ]*)`)

var segmentDelimRe = regexp.MustCompile(`[,;/\-]`)

// Classify decides which resolution branch applies to a raw address.
//
// Unrecognized shapes fail open to Regular: a junk address costs one wasted
// standardization call, whereas classifying a real street address as junk
// loses the delivery.
func Classify(address string) AddressKind {
	if strings.TrimSpace(address) == "" {
		return KindEmpty
	}

	if IsTransportReference(address) {
		if len(ExtractCarrierNames(address)) > 1 {
			return KindMultiCarrier
		}
		return KindSingleCarrier
	}

	return KindRegular
}

// ExtractCarrierName returns the first carrier name found in the address, or
// "" when none is extractable. An empty result means "no carrier
// identified", not an error.
func ExtractCarrierName(address string) string {
	names := ExtractCarrierNames(address)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// ExtractCarrierNames finds every extractable carrier name in the text, in
// order of appearance. Phone numbers and parenthetical asides are stripped
// first so they cannot bleed into a name.
func ExtractCarrierNames(address string) []string {
	cleaned := parentheticalRe.ReplaceAllString(address, " ")
	cleaned = StripPhoneNumbers(cleaned)
	folded := Fold(cleaned)

	names := collectCarrierNames(folded)
	if len(names) > 0 {
		return names
	}

	// No leading-pattern match on the whole text: retry per delimiter
	// segment, since addresses often pack several facts into one field.
	for _, seg := range segmentDelimRe.Split(folded, -1) {
		names = append(names, collectCarrierNames(seg)...)
	}
	return names
}

func collectCarrierNames(folded string) []string {
	var out []string
	for _, m := range carrierNameRe.FindAllStringSubmatch(folded, -1) {
		name := stripOrgSuffix(trimAtDelimiter(m[1]))
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// trimAtDelimiter cuts a captured name at the first segment delimiter; the
// capture group is greedy across spaces.
func trimAtDelimiter(name string) string {
	if loc := segmentDelimRe.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}
	return strings.TrimSpace(name)
}
