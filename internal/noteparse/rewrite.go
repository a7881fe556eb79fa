package noteparse

import (
	"regexp"
	"strings"

	"dispatch-worklist-service/internal/textnorm"
)

// Canonical tokens the rewrite pass emits. The parser matches these instead
// of the open-ended colloquial spellings.
const (
	TokenUrgent       = "URGENT"
	TokenMorning      = "MORNING"
	TokenNoon         = "NOON"
	TokenAfternoon    = "AFTERNOON"
	TokenEvening      = "EVENING"
	TokenToday        = "TODAY"
	TokenTomorrow     = "TOMORROW"
	TokenDayAfter     = "DAYAFTER"
	TokenTwoDaysAfter = "TWODAYSAFTER"
)

// A single rewrite: one colloquialism family collapsed onto one canonical
// token. Rules run in table order; earlier rules must cover the longer
// spellings so their fragments cannot match later.
type Rule struct {
	Pattern *regexp.Regexp
	Token   string
}

// Rules maps the bounded vocabulary of Vietnamese delivery-note idioms onto
// canonical tokens. Patterns run on the lower-cased note before diacritic
// folding: several idioms share a folded spelling with everyday words
// (gấp/gặp, mốt/một, tối/tới), so the tone marks are the only thing telling
// them apart. Unaccented spellings are admitted only inside phrases whose
// surrounding words disambiguate them.
var Rules = []Rule{
	// Urgency. Bare unaccented "gap" and "khan" are never matched alone:
	// folded they collide with "gặp" (to meet) and ordinary names.
	{regexp.MustCompile(`\b(khẩn cấp|khan cap|gấp lắm|gap lam|cần ngay|can ngay|gấp|khẩn)\b`), TokenUrgent},
	{regexp.MustCompile(`\b(giao|hàng|hang|lấy|lay) gap\b`), "$1 " + TokenUrgent},

	// Relative days, longest spellings first. Bare unaccented "mot" is
	// excluded ("một", one).
	{regexp.MustCompile(`\b(ngày kia|ngay kia)\b`), TokenTwoDaysAfter},
	{regexp.MustCompile(`\b(ngày mốt|ngay mot|mai mốt|mai mot|mốt)\b`), TokenDayAfter},
	{regexp.MustCompile(`\b(ngày mai|ngay mai|mai)\b`), TokenTomorrow},
	{regexp.MustCompile(`\b(hôm nay|hom nay|trong ngày|trong ngay|bữa nay|bua nay)\b`), TokenToday},

	// Day parts. Bare unaccented "sang", "toi" and "dem" are excluded
	// ("sang" over, "tới" to/arrive, "đếm" count).
	{regexp.MustCompile(`\b(buổi sáng|buoi sang|sáng sớm|sang som|sáng)\b`), TokenMorning},
	{regexp.MustCompile(`\b(buổi trưa|buoi trua|giữa trưa|giua trua|trưa|trua)\b`), TokenNoon},
	{regexp.MustCompile(`\b(buổi chiều|buoi chieu|chiều tối|chieu toi|chiều|chieu)\b`), TokenAfternoon},
	{regexp.MustCompile(`\b(buổi tối|buoi toi|ban đêm|tối|đêm)\b`), TokenEvening},

	// Weekday abbreviations ("t2", "thứ 2", "cn") meaning next week's day.
	{regexp.MustCompile(`\b(?:thứ |thu |t)([2-7])\b`), "NEXTWEEK_$1"},
	{regexp.MustCompile(`\b(chủ nhật|chu nhat|cn)\b`), "NEXTWEEK_8"},
}

var nextWeekTokenRe = regexp.MustCompile(`\bNEXTWEEK_([2-8])\b`)

// Rewrite normalizes the note's colloquialisms into canonical tokens, then
// folds the remainder.
func Rewrite(note string) string {
	s := strings.ToLower(note)
	for _, r := range Rules {
		s = r.Pattern.ReplaceAllString(s, r.Token)
	}
	return textnorm.CollapseWhitespace(textnorm.Fold(s))
}
