package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/pkg/clock"
)

// RetentionPolicy holds the day thresholds used to grade a retention window.
// Upload and recovery requests historically disagreed on the urgent boundary
// (3 vs 4 days), so each variant carries its own policy.
type RetentionPolicy struct {
	CriticalDays int
	UrgentDays   int
	AdvisoryDays int
}

// Named policies used when configuration leaves them unset.
var (
	DefaultUploadRetention   = RetentionPolicy{CriticalDays: 1, UrgentDays: 3, AdvisoryDays: 7}
	DefaultRecoveryRetention = RetentionPolicy{CriticalDays: 1, UrgentDays: 4, AdvisoryDays: 7}
)

// CalculationConfig tunes the calculation engine.
type CalculationConfig struct {
	Location             *time.Location
	UploadRetention      RetentionPolicy
	RecoveryRetention    RetentionPolicy
	OffsetAlertThreshold time.Duration
}

// CalculationService derives retention, duration and clock offset facts.
// Every method is deterministic for a given clock reading.
type CalculationService struct {
	clock clock.Clock
	cfg   CalculationConfig
}

// NewCalculationService constructs the engine.
func NewCalculationService(clk clock.Clock, cfg CalculationConfig) *CalculationService {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.UploadRetention == (RetentionPolicy{}) {
		cfg.UploadRetention = DefaultUploadRetention
	}
	if cfg.RecoveryRetention == (RetentionPolicy{}) {
		cfg.RecoveryRetention = DefaultRecoveryRetention
	}
	if cfg.OffsetAlertThreshold <= 0 {
		cfg.OffsetAlertThreshold = time.Hour
	}
	return &CalculationService{clock: clk, cfg: cfg}
}

// Now returns the current instant in the configured zone.
func (s *CalculationService) Now() time.Time {
	return s.clock.Now().In(s.cfg.Location)
}

// Location exposes the zone used to interpret captured timestamps.
func (s *CalculationService) Location() *time.Location {
	return s.cfg.Location
}

// RetentionPolicyFor returns the policy of a form variant.
func (s *CalculationService) RetentionPolicyFor(t models.FormType) RetentionPolicy {
	if t == models.FormTypeRecovery {
		return s.cfg.RecoveryRetention
	}
	return s.cfg.UploadRetention
}

// RetentionInfo grades how many whole days of footage a recorder keeps,
// counting from earliest (the oldest recording still on the device) to today.
func (s *CalculationService) RetentionInfo(earliest time.Time, policy RetentionPolicy) models.RetentionInfo {
	days := civilDay(s.Now()) - civilDay(earliest.In(s.cfg.Location))
	if days < 0 {
		return models.RetentionInfo{Message: "Invalid: earliest recording date is in the future"}
	}
	n := int(days)
	info := models.RetentionInfo{Days: &n}
	switch {
	case n == 0:
		info.IsUrgent = true
		info.Message = "CRITICAL: less than 1 day of footage retained, recover immediately"
	case n <= policy.CriticalDays:
		info.IsUrgent = true
		info.Message = fmt.Sprintf("CRITICAL: only %s of footage retained, recover immediately", plural(n, "day"))
	case n <= policy.UrgentDays:
		info.IsUrgent = true
		info.Message = fmt.Sprintf("URGENT: only %s of footage retained", plural(n, "day"))
	case n <= policy.AdvisoryDays:
		info.Message = fmt.Sprintf("%s of footage retained, schedule recovery this week", plural(n, "day"))
	default:
		info.Message = fmt.Sprintf("%s of footage retained", plural(n, "day"))
	}
	return info
}

func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// VideoDuration measures the span between two timestamps in whole minutes.
func (s *CalculationService) VideoDuration(start, end time.Time) models.DurationInfo {
	if !end.After(start) {
		return models.DurationInfo{Text: "Invalid duration: end time must be after start time"}
	}
	minutes := int(end.Sub(start) / time.Minute)
	return models.DurationInfo{Valid: true, Minutes: minutes, Text: FormatMinutes(minutes)}
}

// FormatMinutes renders a positive minute count as "H hour(s) M minute(s)".
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "less than 1 minute"
	}
	h, m := minutes/60, minutes%60
	parts := make([]string, 0, 2)
	if h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m > 0 {
		parts = append(parts, plural(m, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

var (
	// A unit ends at any non-letter so compact forms like "1h30m" match.
	offsetHoursRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:hours?|hrs?|h)(?:[^a-z]|$)`)
	offsetMinutesRe = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes?|mins?|m)(?:[^a-z]|$)`)
	offsetSecondsRe = regexp.MustCompile(`(?i)(\d+)\s*(?:seconds?|secs?|s)(?:[^a-z]|$)`)
	offsetBehindRe  = regexp.MustCompile(`(?i)\b(?:behind|slow)\b`)
	offsetAheadRe   = regexp.MustCompile(`(?i)\b(?:ahead|fast)\b`)
)

// ParseTimeOffset reads a free-text clock offset such as "DVR is 1hr 5min AHEAD".
// Units are matched independently; a missing unit counts as zero. When no
// unit is present the original text is kept as the formatted value.
func ParseTimeOffset(text string) models.OffsetInfo {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.OffsetInfo{}
	}

	info := models.OffsetInfo{Direction: models.OffsetAhead}
	if offsetBehindRe.MatchString(trimmed) && !offsetAheadRe.MatchString(trimmed) {
		info.Direction = models.OffsetBehind
	}

	var found bool
	info.Hours, found = matchUnit(offsetHoursRe, trimmed, found)
	info.Minutes, found = matchUnit(offsetMinutesRe, trimmed, found)
	info.Seconds, found = matchUnit(offsetSecondsRe, trimmed, found)
	info.HasUnits = found

	if !found {
		info.Formatted = trimmed
		return info
	}
	info.Formatted = FormatOffset(info)
	return info
}

func matchUnit(re *regexp.Regexp, text string, found bool) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, found
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, found
	}
	return n, true
}

// FormatOffset renders the canonical sentence for a parsed offset.
func FormatOffset(o models.OffsetInfo) string {
	parts := make([]string, 0, 3)
	if o.Hours > 0 {
		parts = append(parts, plural(o.Hours, "hour"))
	}
	if o.Minutes > 0 {
		parts = append(parts, plural(o.Minutes, "minute"))
	}
	if o.Seconds > 0 {
		parts = append(parts, plural(o.Seconds, "second"))
	}
	if len(parts) == 0 {
		parts = append(parts, "0 seconds")
	}
	dir := o.Direction
	if dir == "" {
		dir = models.OffsetAhead
	}
	return fmt.Sprintf("DVR is %s %s of real time", strings.Join(parts, " "), dir)
}

// AdjustedTime converts a time shown by the device into real time.
// A clock running ahead shows a later time, so the offset is subtracted.
func AdjustedTime(displayed time.Time, offset models.OffsetInfo) time.Time {
	d := offset.Duration()
	if offset.Direction == models.OffsetBehind {
		return displayed.Add(d)
	}
	return displayed.Add(-d)
}

// OffsetIsSignificant reports whether an offset should raise a report banner.
func (s *CalculationService) OffsetIsSignificant(o models.OffsetInfo) bool {
	return o.HasUnits && o.Duration() >= s.cfg.OffsetAlertThreshold
}

var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp reads a datetime-local or RFC 3339 value in the configured zone.
func (s *CalculationService) ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(s.cfg.Location), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, s.cfg.Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

// ParseDate reads a calendar date (YYYY-MM-DD) in the configured zone.
func (s *CalculationService) ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.ParseInLocation("2006-01-02", raw, s.cfg.Location)
	if err == nil {
		return t, nil
	}
	if ts, tsErr := s.ParseTimestamp(raw); tsErr == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// FormatTimestamp renders a timestamp for the report.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
