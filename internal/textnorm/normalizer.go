package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Pure text transforms shared by the address classifier and the note parser.
// Matching is done in "folded" space: diacritics stripped, upper-cased, so a
// single vocabulary covers both accented and unaccented spellings.

var (
	// Vietnamese mobile/landline numbers, with optional separators.
	phoneRe = regexp.MustCompile(`(\+84|0)(?:[\s.\-]?\d){8,10}`)

	// Honorific + capitalized name pairs ("anh Tuấn", "chị Hoa").
	honorificRe = regexp.MustCompile(`\b(?i:anh|chi|chị|chu|chú|co|cô|em|ong|ông|ba|bà)\s+\p{Lu}\p{L}*`)

	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)

	// Carrier keywords in folded space, longest first.
	carrierKeywordRe = regexp.MustCompile(`\b(NHA XE|CHANH XE|HANG XE|XE)\b`)

	// Express/courier handoff markers: no road route from the warehouse.
	expressRe = regexp.MustCompile(`\b(CHUYEN PHAT NHANH|CPN|VIETTEL POST|GHN|GHTK|AHAMOVE)\b`)

	// Organizational suffixes the carrier table does not store.
	orgSuffixRe = regexp.MustCompile(`\s+(CONG TY|CTY|TNHH|CO PHAN|VAN TAI|LOGISTICS)\s*$`)

	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Fold strips Vietnamese diacritics (including đ/Đ, which NFD leaves intact)
// and upper-cases the result.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(out, "đ", "d")
	out = strings.ReplaceAll(out, "Đ", "D")
	return strings.ToUpper(out)
}

// CollapseWhitespace joins all whitespace runs into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripPhoneNumbers removes embedded phone numbers.
func StripPhoneNumbers(s string) string {
	return CollapseWhitespace(phoneRe.ReplaceAllString(s, " "))
}

// StripHonorifics removes "honorific + name" pairs left in address fields by
// data entry ("giao anh Tuấn 0903...").
func StripHonorifics(s string) string {
	return CollapseWhitespace(honorificRe.ReplaceAllString(s, " "))
}

// CleanAddress prepares a raw address for standardization: phones and
// honorific/name pairs out, whitespace collapsed. The text itself keeps its
// diacritics; only matching happens in folded space.
func CleanAddress(s string) string {
	s = phoneRe.ReplaceAllString(s, " ")
	s = honorificRe.ReplaceAllString(s, " ")
	return CollapseWhitespace(s)
}

// IsTransportReference reports whether the text mentions a carrier keyword.
func IsTransportReference(s string) bool {
	return carrierKeywordRe.MatchString(Fold(s))
}

// IsExpressService reports whether the text names an express/courier
// service rather than a road destination.
func IsExpressService(s string) bool {
	return expressRe.MatchString(Fold(s))
}

// stripOrgSuffix drops trailing organizational nouns so extracted names line
// up with the bare names the carrier table stores.
func stripOrgSuffix(name string) string {
	return strings.TrimSpace(orgSuffixRe.ReplaceAllString(name, ""))
}

var leadingCarrierKeywordRe = regexp.MustCompile(`^\s*(NHA XE|CHANH XE|HANG XE|XE)\s*[:\-]?\s*`)

// NormalizeCarrierName prepares a carrier name for the reference-table
// lookup: folded, phone digits out, leading carrier keyword and trailing
// organizational nouns removed.
func NormalizeCarrierName(s string) string {
	f := Fold(StripPhoneNumbers(s))
	f = leadingCarrierKeywordRe.ReplaceAllString(f, "")
	return CollapseWhitespace(stripOrgSuffix(f))
}
