// Package cases models the long-list of probation case records and decides
// which of them are eligible for sampling and which stratum they fall in.
package cases

import (
	"fmt"
	"strings"
	"time"
)

// Gender as recorded on the long-list.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// UnmarshalText accepts the single-letter codes used by case management
// exports as well as the full names.
func (g *Gender) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "M", "MALE":
		*g = GenderMale
	case "F", "FEMALE":
		*g = GenderFemale
	case "O", "OTHER":
		*g = GenderOther
	default:
		return fmt.Errorf("unknown gender %q", string(text))
	}
	return nil
}

// SentenceType groups the order types into the two kinds the sample is
// stratified on.
type SentenceType string

const (
	CommunitySentence SentenceType = "COMMUNITY_SENTENCE"
	PostCustody       SentenceType = "POST_CUSTODY"
)

var sentenceAliases = map[string]SentenceType{
	"community_sentence":               CommunitySentence,
	"ora community order":              CommunitySentence,
	"ora suspended sentence order":     CommunitySentence,
	"cja - youth rehabilitation order": CommunitySentence,
	"post_custody":                     PostCustody,
	"adult licence":                    PostCustody,
	"ora supervision default order":    PostCustody,
}

func (s *SentenceType) UnmarshalText(text []byte) error {
	v, ok := sentenceAliases[strings.ToLower(strings.TrimSpace(string(text)))]
	if !ok {
		return fmt.Errorf("unknown sentence type %q", string(text))
	}
	*s = v
	return nil
}

// RiskLevel is the Risk of Serious Harm (RoSH) classification.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
)

var riskAliases = map[string]RiskLevel{
	"RLRH":      RiskLow,
	"LOW":       RiskLow,
	"RMRH":      RiskMedium,
	"MEDIUM":    RiskMedium,
	"RHRH":      RiskHigh,
	"HIGH":      RiskHigh,
	"RVRH":      RiskVeryHigh,
	"VERY_HIGH": RiskVeryHigh,
}

func (r *RiskLevel) UnmarshalText(text []byte) error {
	v, ok := riskAliases[strings.ToUpper(strings.TrimSpace(string(text)))]
	if !ok {
		return fmt.Errorf("unknown risk level %q", string(text))
	}
	*r = v
	return nil
}

// Low reports whether the classification counts as low risk.
func (r RiskLevel) Low() bool { return r == RiskLow }

// Record is one case on the long-list. Records are treated as read-only
// once loaded.
type Record struct {
	FamilyName   string       `json:"familyName"`
	FirstName    string       `json:"firstName"`
	DOB          string       `json:"dob"`
	Gender       Gender       `json:"gender" validate:"required"`
	SentenceType SentenceType `json:"sentenceType" validate:"required"`
	CRN          string       `json:"crn" validate:"required"`
	PNC          string       `json:"pnc"`
	Risk         RiskLevel    `json:"roshClassification" validate:"required"`
	// Sentence date or release on licence date.
	StartDate Date `json:"startDate"`
	// Order or licence terminated.
	EndDate OptionalDate `json:"endDate"`
	Cluster string       `json:"cluster" validate:"required"`
	Unit    string       `json:"ldu" validate:"required"`
	Team    string       `json:"team"`
	Agent   string       `json:"responsibleOfficer" validate:"required"`
	Manager string       `json:"manager"`
	Officer string       `json:"officer"`
}

// DateLayout is the day-first layout used by the long-list exports.
const DateLayout = "02/01/2006"

// Date is a calendar day without a time component.
type Date struct {
	t time.Time
}

// NewDate returns the calendar day of t.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a dd/MM/yyyy string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

func (d Date) Time() time.Time    { return d.t }
func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) String() string     { return d.t.Format(DateLayout) }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// OptionalDate is a Date that may be absent, written as "N" on the wire.
type OptionalDate struct {
	date  Date
	valid bool
}

const noDate = "N"

// SomeDate wraps d as a present OptionalDate.
func SomeDate(d Date) OptionalDate { return OptionalDate{date: d, valid: true} }

// Get returns the date and whether it is present.
func (o OptionalDate) Get() (Date, bool) { return o.date, o.valid }

func (o OptionalDate) MarshalText() ([]byte, error) {
	if !o.valid {
		return []byte(noDate), nil
	}
	return o.date.MarshalText()
}

func (o *OptionalDate) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || strings.EqualFold(s, noDate) {
		*o = OptionalDate{}
		return nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return err
	}
	*o = SomeDate(d)
	return nil
}
