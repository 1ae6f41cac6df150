package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/fvu-intake/internal/models"
)

// ConditionalRule makes Dependent required while Selector equals Sentinel.
type ConditionalRule[F ~string] struct {
	Selector  F
	Sentinel  string
	Dependent F
	Message   string
}

// FormConditionalRules apply to top-level fields.
var FormConditionalRules = []ConditionalRule[models.Field]{
	{Selector: models.FieldOffenceType, Sentinel: models.OtherOption, Dependent: models.FieldOffenceOther, Message: "Please specify the offence type"},
	{Selector: models.FieldMediaType, Sentinel: models.OtherOption, Dependent: models.FieldMediaTypeOther, Message: "Please specify the media type"},
	{Selector: models.FieldServiceRequired, Sentinel: models.OtherOption, Dependent: models.FieldServiceRequiredOther, Message: "Please specify the service required"},
	{Selector: models.FieldVideoLocation, Sentinel: models.OtherOption, Dependent: models.FieldVideoLocationOther, Message: "Please specify where the video was seized"},
}

// LocationConditionalRules apply inside each location group.
var LocationConditionalRules = []ConditionalRule[models.LocationField]{
	{Selector: models.LocCity, Sentinel: models.OtherOption, Dependent: models.LocCityOther, Message: "Please specify the city"},
	{Selector: models.LocTimeCorrect, Sentinel: models.NoOption, Dependent: models.LocTimeOffset, Message: "Please describe the time offset"},
}

// activeDependents returns dependent field → message for every rule currently triggered.
func activeDependents[F ~string](rules []ConditionalRule[F], get func(F) string) map[F]string {
	out := make(map[F]string)
	for _, rule := range rules {
		if strings.EqualFold(get(rule.Selector), rule.Sentinel) {
			out[rule.Dependent] = rule.Message
		}
	}
	return out
}

// ValidationConfig carries organisation-specific rule parameters.
type ValidationConfig struct {
	EmailDomain      string
	OccurrencePrefix string
	LockerMin        int
	LockerMax        int
}

// ValidationService evaluates field, conditional and group rules.
type ValidationService struct {
	validate     *validator.Validate
	calc         *CalculationService
	cfg          ValidationConfig
	occurrenceRe *regexp.Regexp
	logger       *zap.Logger
}

const requiredMessage = "This field is required"

// NewValidationService constructs the validator and registers the custom tags.
func NewValidationService(validate *validator.Validate, calc *CalculationService, cfg ValidationConfig, logger *zap.Logger) *ValidationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = "peelpolice.ca"
	}
	if cfg.OccurrencePrefix == "" {
		cfg.OccurrencePrefix = "PR"
	}
	if cfg.LockerMin == 0 && cfg.LockerMax == 0 {
		cfg.LockerMin, cfg.LockerMax = 1, 28
	}
	svc := &ValidationService{
		validate:     validate,
		calc:         calc,
		cfg:          cfg,
		occurrenceRe: regexp.MustCompile(`^(?i:` + regexp.QuoteMeta(cfg.OccurrencePrefix) + `)\d+$`),
		logger:       logger,
	}
	domain := "@" + strings.ToLower(strings.TrimPrefix(cfg.EmailDomain, "@"))
	_ = svc.validate.RegisterValidation("org_email", func(fl validator.FieldLevel) bool {
		return strings.HasSuffix(strings.ToLower(fl.Field().String()), domain)
	})
	_ = svc.validate.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return len(digitsOnly(fl.Field().String())) == 10
	})
	_ = svc.validate.RegisterValidation("occurrence", func(fl validator.FieldLevel) bool {
		return svc.occurrenceRe.MatchString(fl.Field().String())
	})
	_ = svc.validate.RegisterValidation("has_digit", func(fl validator.FieldLevel) bool {
		return strings.ContainsAny(fl.Field().String(), "0123456789")
	})
	return svc
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateField checks one value. It returns "" when the value is acceptable.
func (s *ValidationService) ValidateField(value, field string, required bool) string {
	if models.IsEmpty(value) {
		if required {
			return requiredMessage
		}
		return ""
	}
	value = strings.TrimSpace(value)

	switch field {
	case string(models.FieldRequestingEmail):
		if s.validate.Var(value, "email") != nil {
			return "Please enter a valid email address"
		}
		if s.validate.Var(value, "org_email") != nil {
			return fmt.Sprintf("Email must be a @%s address", strings.TrimPrefix(s.cfg.EmailDomain, "@"))
		}
	case string(models.FieldRequestingPhone), string(models.FieldContactPhone):
		if s.validate.Var(value, "phone10") != nil {
			return "Phone number must be 10 digits"
		}
	case string(models.FieldOccurrenceNum):
		if s.validate.Var(value, "occurrence") != nil {
			return fmt.Sprintf("Occurrence number must be %s followed by digits", s.cfg.OccurrencePrefix)
		}
	case string(models.FieldLockerNumber):
		if s.validate.Var(value, "numeric") != nil || strings.ContainsAny(value, "+-.") {
			return "Locker number must be a number"
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < s.cfg.LockerMin || n > s.cfg.LockerMax {
			return fmt.Sprintf("Locker number must be between %d and %d", s.cfg.LockerMin, s.cfg.LockerMax)
		}
	case string(models.LocTimeOffset):
		if s.validate.Var(value, "has_digit") != nil {
			return "Offset must include a number (e.g. 5 minutes ahead)"
		}
	}
	return ""
}

// Validate evaluates a whole field set. Locations are validated independently,
// so one bad group never hides errors in another.
func (s *ValidationService) Validate(fs models.FieldSet) models.ValidationResult {
	result := models.ValidationResult{FieldErrors: map[string]string{}}
	schema, ok := models.SchemaFor(fs.Type)
	if !ok {
		result.FieldErrors["formType"] = "Unknown form type"
		result.FirstInvalidField = "formType"
		return result
	}

	order := make([]string, 0)
	addErr := func(key, msg string) {
		if msg == "" {
			return
		}
		if _, exists := result.FieldErrors[key]; !exists {
			order = append(order, key)
		}
		result.FieldErrors[key] = msg
	}

	deps := activeDependents(FormConditionalRules, fs.Get)
	for _, spec := range schema.Fields {
		depMsg, conditional := deps[spec.Field]
		msg := s.ValidateField(fs.Raw(spec.Field), string(spec.Field), spec.Required || conditional)
		if msg == requiredMessage && conditional {
			msg = depMsg
		}
		addErr(string(spec.Field), msg)
	}

	if schema.HasLocations() {
		locations := fs.Locations()
		switch {
		case len(locations) < schema.MinLocations:
			addErr("locations", "At least one location is required")
		case schema.MaxLocations > 0 && len(locations) > schema.MaxLocations:
			addErr("locations", fmt.Sprintf("At most %d location(s) allowed", schema.MaxLocations))
		}
		for i, loc := range locations {
			order = append(order, s.locationErrorOrder(schema, i, loc, result.FieldErrors)...)
		}
	}

	if len(order) > 0 {
		result.FirstInvalidField = order[0]
	}
	result.IsValid = len(result.FieldErrors) == 0
	if !result.IsValid {
		s.logger.Debug("validation failed", zap.String("form_type", string(fs.Type)), zap.Int("errors", len(result.FieldErrors)))
	}
	return result
}

// ValidateLocation validates one group and returns errors keyed by field.
func (s *ValidationService) ValidateLocation(schema models.FormSchema, loc models.Location) map[models.LocationField]string {
	errs := make(map[models.LocationField]string)
	deps := activeDependents(LocationConditionalRules, loc.Get)

	for _, spec := range schema.LocationFields {
		depMsg, conditional := deps[spec.Field]
		msg := s.ValidateField(loc.Values[spec.Field], string(spec.Field), spec.Required || conditional)
		if msg == requiredMessage && conditional {
			msg = depMsg
		}
		if msg != "" {
			errs[spec.Field] = msg
		}
	}

	if v := loc.Get(models.LocTimeCorrect); v != "" && !strings.EqualFold(v, models.YesOption) && !strings.EqualFold(v, models.NoOption) {
		errs[models.LocTimeCorrect] = "Please answer Yes or No"
	}

	now := s.calc.Now()
	start, startOK := s.parseTimestampField(loc, models.LocVideoStart, errs)
	end, endOK := s.parseTimestampField(loc, models.LocVideoEnd, errs)
	if startOK && endOK {
		if field, msg := ValidateDateRange(start, end, now); msg != "" {
			errs[field] = msg
		}
	}

	if raw := loc.Get(models.LocDVREarliestDate); raw != "" {
		if d, err := s.calc.ParseDate(raw); err != nil {
			errs[models.LocDVREarliestDate] = "Please enter a valid date"
		} else if civilDay(d.In(now.Location())) > civilDay(now) {
			errs[models.LocDVREarliestDate] = "Date cannot be in the future"
		}
	}
	return errs
}

func (s *ValidationService) locationErrorOrder(schema models.FormSchema, i int, loc models.Location, into map[string]string) []string {
	errs := s.ValidateLocation(schema, loc)
	keys := make([]string, 0, len(errs))
	for _, f := range models.LocationFields {
		msg, ok := errs[f]
		if !ok {
			continue
		}
		key := models.LocationKey(i, f)
		into[key] = msg
		keys = append(keys, key)
	}
	return keys
}

func (s *ValidationService) parseTimestampField(loc models.Location, f models.LocationField, errs map[models.LocationField]string) (time.Time, bool) {
	raw := loc.Get(f)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := s.calc.ParseTimestamp(raw)
	if err != nil {
		errs[f] = "Please enter a valid date and time"
		return time.Time{}, false
	}
	return t, true
}

// ValidateDateRange checks an ordered, non-future video window. When both a
// future timestamp and an inverted range are present, the future-date error
// is reported because it must be fixed before the ordering is meaningful.
func ValidateDateRange(start, end, now time.Time) (models.LocationField, string) {
	switch {
	case start.After(now):
		return models.LocVideoStart, "Start time cannot be in the future"
	case end.After(now):
		return models.LocVideoEnd, "End time cannot be in the future"
	case !end.After(start):
		return models.LocVideoEnd, "End time must be after start time"
	}
	return "", ""
}

// CompletionPercent is the share of currently required fields that are filled.
func (s *ValidationService) CompletionPercent(fs models.FieldSet) int {
	schema, ok := models.SchemaFor(fs.Type)
	if !ok {
		return 0
	}
	total, filled := 0, 0
	count := func(required bool, value string) {
		if !required {
			return
		}
		total++
		if !models.IsEmpty(value) {
			filled++
		}
	}

	deps := activeDependents(FormConditionalRules, fs.Get)
	for _, spec := range schema.Fields {
		_, conditional := deps[spec.Field]
		count(spec.Required || conditional, fs.Raw(spec.Field))
	}
	for _, loc := range fs.Locations() {
		locDeps := activeDependents(LocationConditionalRules, loc.Get)
		for _, spec := range schema.LocationFields {
			_, conditional := locDeps[spec.Field]
			count(spec.Required || conditional, loc.Values[spec.Field])
		}
	}
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(filled) * 100 / float64(total)))
}

// VisibleCompanions lists the companion fields a UI should currently show.
// It reads the same rule tables as Validate.
func (s *ValidationService) VisibleCompanions(fs models.FieldSet) []string {
	out := make([]string, 0)
	for _, rule := range FormConditionalRules {
		if strings.EqualFold(fs.Get(rule.Selector), rule.Sentinel) {
			out = append(out, string(rule.Dependent))
		}
	}
	for i, loc := range fs.Locations() {
		for _, rule := range LocationConditionalRules {
			if strings.EqualFold(loc.Get(rule.Selector), rule.Sentinel) {
				out = append(out, models.LocationKey(i, rule.Dependent))
			}
		}
	}
	return out
}
