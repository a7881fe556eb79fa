package noteparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"dispatch-worklist-service/internal/textnorm"
)

// Priority levels suggested by a note. Hard means an explicit clock time or
// urgent marker was present; Soft means only a day-level signal.
const (
	PriorityNone = 0
	PrioritySoft = 1
	PriorityHard = 2
)

// Assumed average warehouse-to-destination travel time plus a loading buffer,
// used to decide whether a stated same-day deadline is still reachable.
const (
	avgTravelTime = 45 * time.Minute
	loadingBuffer = 30 * time.Minute
)

// Everything extractable from one delivery note. Derived fresh on every
// parse; only its effects (urgency, deadline, address) are persisted.
type Result struct {
	CarrierName  string
	Address      string
	TimeHint     string
	DeliveryDate *time.Time
	Deadline     *time.Time
	Priority     int
	CargoType    string
}

var (
	beforeTimeRe = regexp.MustCompile(`\bTRUOC\s+(\d{1,2})(?::(\d{2})|H(\d{2})?)?\s*(AM|PM)?`)
	hourRangeRe  = regexp.MustCompile(`\b(\d{1,2})(?:H(\d{2})?|:(\d{2}))?\s*-\s*(\d{1,2})(?:H(\d{2})?|:(\d{2}))?H?\b`)
	numericDate  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)

	dayPartRe = regexp.MustCompile(`\b(MORNING|NOON|AFTERNOON|EVENING)\b`)

	// Carrier name inside a rewritten note; the capture stops at the next
	// delimiter or canonical token.
	noteCarrierRe = regexp.MustCompile(`\b(?:NHA XE|CHANH XE|HANG XE|XE)\s*[:\-]?\s*([A-Z][A-Z0-9 ]*)`)
	stopTokenRe   = regexp.MustCompile(`\b(URGENT|MORNING|NOON|AFTERNOON|EVENING|TODAY|TOMORROW|DAYAFTER|TWODAYSAFTER|NEXTWEEK_\d|TRUOC|GIAO)\b`)

	// "delivery-keyword : address-like text" in the original note. The
	// address must start with a digit so bare instructions do not match.
	deliveryAddrRe = regexp.MustCompile(`(?i)\b(?:giao hàng đến|giao hang den|giao đến|giao den|giao tới|giao toi|địa chỉ|dia chi|đ/c|d/c|giao)\s*[:：]?\s*(\d[\p{L}\p{N} .,/\-]+)`)

	addressLikeRe = regexp.MustCompile(`\d+[\p{L}\p{N}/\-]*\s+\p{L}`)

	urgentTokenRe = regexp.MustCompile(`\bURGENT\b`)

	segmentSplitRe = regexp.MustCompile(`[,;]`)
	nameDelimRe    = regexp.MustCompile(`[,;/\-]`)
)

// Fixed cargo descriptor vocabulary, matched in table order against the
// rewritten note.
var cargoRules = []struct {
	re  *regexp.Regexp
	tag string
}{
	{regexp.MustCompile(`\b(DE VO|HANG KINH|THUY TINH)\b`), "fragile"},
	{regexp.MustCompile(`\b(HANG NANG|SIEU TRUONG)\b`), "heavy"},
	{regexp.MustCompile(`\b(DONG LANH|HANG LANH|UOP LANH)\b`), "refrigerated"},
	{regexp.MustCompile(`\b(TUOI SONG|HAI SAN TUOI|DO TUOI)\b`), "perishable"},
	{regexp.MustCompile(`\b(CONG KENH|QUA KHO)\b`), "bulky"},
	{regexp.MustCompile(`\b(NGUY HIEM|DE CHAY|HOA CHAT)\b`), "hazardous"},
	{regexp.MustCompile(`\b(GIA TRI CAO|HANG QUY)\b`), "high-value"},
}

// Parse extracts carrier, address, timing, and cargo facts from a free-text
// note. ref anchors all relative dates and deadline arithmetic; a zero ref
// falls back to the current time.
func Parse(note string, ref time.Time) Result {
	if ref.IsZero() {
		ref = time.Now()
	}

	var res Result
	if strings.TrimSpace(note) == "" {
		return res
	}

	rew := Rewrite(note)
	urgent := urgentTokenRe.MatchString(rew)

	res.CarrierName = extractNoteCarrier(rew)
	res.CargoType = extractCargo(rew)
	res.Address = extractNoteAddress(note, rew)

	// Delivery date first: deadline extraction may override it.
	explicitDate := false
	if d, ok := extractNumericDate(rew, ref); ok {
		res.DeliveryDate = &d
		explicitDate = true
	} else if d, ok := extractRelativeDate(rew, ref); ok {
		res.DeliveryDate = &d
		explicitDate = true
	}

	// Deadline waterfall: each branch applies only when earlier ones missed.
	switch {
	case urgent && beforeTimeRe.MatchString(rew):
		m := beforeTimeRe.FindStringSubmatch(rew)
		res.TimeHint = textnorm.CollapseWhitespace(beforeTimeRe.FindString(rew))
		hh, mm := parseClock(m[1], m[2], m[3], m[4])
		stated := atClock(dayOf(res.DeliveryDate, ref), hh, mm)

		// An urgent deadline only counts as hard while the truck can still
		// make it: dispatch time plus average travel plus loading buffer.
		reachable := ref.Add(avgTravelTime + loadingBuffer)
		if reachable.Before(stated) || reachable.Equal(stated) {
			d := dayOf(res.DeliveryDate, ref)
			res.DeliveryDate = &d
			res.Deadline = &stated
			res.Priority = PriorityHard
		} else {
			next := nextEligibleWeekday(dayOf(res.DeliveryDate, ref))
			res.DeliveryDate = &next
			pushed := atClock(next, hh, mm)
			res.Deadline = &pushed
			res.Priority = PrioritySoft
		}

	case beforeTimeRe.MatchString(rew):
		m := beforeTimeRe.FindStringSubmatch(rew)
		res.TimeHint = textnorm.CollapseWhitespace(beforeTimeRe.FindString(rew))
		hh, mm := parseClock(m[1], m[2], m[3], m[4])
		dl := atClock(dayOf(res.DeliveryDate, ref), hh, mm)
		res.Deadline = &dl
		res.Priority = PriorityHard

	case hourRangeRe.MatchString(rew):
		m := hourRangeRe.FindStringSubmatch(rew)
		res.TimeHint = textnorm.CollapseWhitespace(hourRangeRe.FindString(rew))
		endH, endM := parseClock(m[4], m[6], m[5], "")
		dl := atClock(dayOf(res.DeliveryDate, ref), endH, endM)
		res.Deadline = &dl
		res.Priority = PriorityHard

	case dayPartRe.MatchString(rew):
		res.TimeHint = dayPartRe.FindString(rew)
		res.Priority = PrioritySoft
	}

	if res.Priority == PriorityNone && explicitDate {
		res.Priority = PrioritySoft
	}

	// Urgent marker with no parseable deadline still means "go now".
	if urgent && res.Deadline == nil {
		res.Priority = PriorityHard
		if res.DeliveryDate == nil {
			d := dayOf(nil, ref)
			res.DeliveryDate = &d
		}
	}

	return res
}

func extractNoteCarrier(rew string) string {
	m := noteCarrierRe.FindStringSubmatch(rew)
	if m == nil {
		return ""
	}
	name := m[1]
	if loc := stopTokenRe.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}
	if loc := nameDelimRe.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}
	return strings.TrimSpace(name)
}

func extractCargo(rew string) string {
	for _, r := range cargoRules {
		if r.re.MatchString(rew) {
			return r.tag
		}
	}
	return ""
}

// extractNoteAddress prefers an explicit "delivery-keyword : address"
// pattern; failing that it scans delimiter-separated segments of the
// original note for residual address-shaped text.
func extractNoteAddress(note, rew string) string {
	cleaned := textnorm.StripPhoneNumbers(note)

	if m := deliveryAddrRe.FindStringSubmatch(cleaned); m != nil {
		return strings.Trim(strings.TrimSpace(m[1]), ".,")
	}

	for _, seg := range segmentSplitRe.Split(cleaned, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" || textnorm.IsTransportReference(seg) {
			continue
		}
		segRew := Rewrite(seg)
		if beforeTimeRe.MatchString(segRew) || hourRangeRe.MatchString(segRew) || dayPartRe.MatchString(segRew) {
			continue
		}
		if addressLikeRe.MatchString(seg) {
			return seg
		}
	}
	return ""
}

func extractNumericDate(rew string, ref time.Time) (time.Time, bool) {
	for _, m := range numericDate.FindAllStringSubmatch(rew, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			continue
		}
		year := ref.Year()
		if m[3] != "" {
			y, _ := strconv.Atoi(m[3])
			if y < 100 {
				y += 2000
			}
			year = y
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, ref.Location()), true
	}
	return time.Time{}, false
}

func extractRelativeDate(rew string, ref time.Time) (time.Time, bool) {
	day := dayOf(nil, ref)
	switch {
	case strings.Contains(rew, TokenToday):
		return day, true
	case strings.Contains(rew, TokenTomorrow):
		return day.AddDate(0, 0, 1), true
	case strings.Contains(rew, TokenTwoDaysAfter):
		return day.AddDate(0, 0, 3), true
	case strings.Contains(rew, TokenDayAfter):
		return day.AddDate(0, 0, 2), true
	}
	if m := nextWeekTokenRe.FindStringSubmatch(rew); m != nil {
		n, _ := strconv.Atoi(m[1])
		return nextWeekWeekday(ref, n), true
	}
	return time.Time{}, false
}

// parseClock merges the alternate capture groups of the time patterns into
// an hour/minute pair, applying am/pm when stated.
func parseClock(hStr, colonMin, hMin, ampm string) (int, int) {
	h, _ := strconv.Atoi(hStr)
	m := 0
	if colonMin != "" {
		m, _ = strconv.Atoi(colonMin)
	} else if hMin != "" {
		m, _ = strconv.Atoi(hMin)
	}
	if ampm == "PM" && h < 12 {
		h += 12
	}
	if ampm == "AM" && h == 12 {
		h = 0
	}
	if h > 23 {
		h = 23
	}
	if m > 59 {
		m = 59
	}
	return h, m
}

func dayOf(d *time.Time, ref time.Time) time.Time {
	t := ref
	if d != nil {
		t = *d
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atClock(day time.Time, h, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

// nextEligibleWeekday is the next delivery day after the given one; Sundays
// carry no departures.
func nextEligibleWeekday(day time.Time) time.Time {
	next := day.AddDate(0, 0, 1)
	for next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextWeekWeekday maps a weekday number in Vietnamese convention (2=Monday
// ... 8=Sunday) onto that day of next week.
func nextWeekWeekday(ref time.Time, n int) time.Time {
	target := time.Weekday((n - 1) % 7) // 2->Monday(1) ... 8->Sunday(0)
	day := dayOf(nil, ref)

	// Jump to next week's Monday, then forward to the target day.
	daysUntilMonday := (8 - int(day.Weekday())) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7
	}
	monday := day.AddDate(0, 0, daysUntilMonday)

	offset := (int(target) - 1 + 7) % 7
	return monday.AddDate(0, 0, offset)
}
