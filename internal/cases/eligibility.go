package cases

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownCategory is returned when a record cannot be placed in any
// category. Records of other gender are excluded before categorisation, so
// seeing this means an ineligible record slipped through.
var ErrUnknownCategory = errors.New("cannot determine category")

// Category is the stratum a record is sampled in.
type Category string

const (
	MaleCommunityNonLow   Category = "MALE_COMMUNITY_NON_LOW"
	MaleCommunityLow      Category = "MALE_COMMUNITY_LOW"
	MalePostCustodyNonLow Category = "MALE_POST_CUSTODY_NON_LOW"
	MalePostCustodyLow    Category = "MALE_POST_CUSTODY_LOW"
	Female                Category = "FEMALE"
)

// Categories lists every category in report order.
var Categories = []Category{
	MaleCommunityNonLow,
	MaleCommunityLow,
	MalePostCustodyNonLow,
	MalePostCustodyLow,
	Female,
}

const redactionMarker = "*"

// Redacted reports whether either name has been masked out.
func (r Record) Redacted() bool {
	return strings.Contains(r.FirstName, redactionMarker) || strings.Contains(r.FamilyName, redactionMarker)
}

// StartsAfter reports whether the case commences on a later day than now.
func (r Record) StartsAfter(now time.Time) bool {
	return r.StartDate.After(NewDate(now))
}

// Excluded reports whether the record can never be sampled.
func (r Record) Excluded(now time.Time) bool {
	return r.Redacted() || r.StartsAfter(now) || r.Gender == GenderOther
}

// SameOffender reports whether both records belong to the same person,
// either by police national computer number or by name and date of birth.
func (r Record) SameOffender(other Record) bool {
	return r.PNC == other.PNC ||
		(r.FirstName == other.FirstName && r.FamilyName == other.FamilyName && r.DOB == other.DOB)
}

// Category derives the record's stratum.
func (r Record) Category() (Category, error) {
	switch r.Gender {
	case GenderFemale:
		return Female, nil
	case GenderMale:
		switch r.SentenceType {
		case CommunitySentence:
			if r.Risk.Low() {
				return MaleCommunityLow, nil
			}
			return MaleCommunityNonLow, nil
		case PostCustody:
			if r.Risk.Low() {
				return MalePostCustodyLow, nil
			}
			return MalePostCustodyNonLow, nil
		}
	}
	return "", fmt.Errorf("%w: crn %s gender %q sentence %q", ErrUnknownCategory, r.CRN, r.Gender, r.SentenceType)
}

// Eligible drops excluded records and keeps only the earliest case for each
// offender. When several duplicates share the earliest start date the one
// appearing first in records wins.
func Eligible(records []Record, now time.Time) []Record {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.Excluded(now) {
			kept = append(kept, r)
		}
	}

	out := make([]Record, 0, len(kept))
	for i := range kept {
		if earliestFor(kept, i) == i {
			out = append(out, kept[i])
		}
	}
	return out
}

// earliestFor returns the index of the earliest record in records that is
// the same offender as records[i].
func earliestFor(records []Record, i int) int {
	best := -1
	for j := range records {
		if !records[i].SameOffender(records[j]) {
			continue
		}
		if best < 0 || records[j].StartDate.Before(records[best].StartDate) {
			best = j
		}
	}
	return best
}

// Stratum is the set of eligible records in one category.
type Stratum struct {
	Category Category
	Records  []Record
}

// Stratify filters the long-list down to eligible records and groups them
// by category. Empty categories are omitted; the rest follow Categories
// order with records in input order.
func Stratify(records []Record, now time.Time) ([]Stratum, error) {
	grouped := make(map[Category][]Record, len(Categories))
	for _, r := range Eligible(records, now) {
		c, err := r.Category()
		if err != nil {
			return nil, err
		}
		grouped[c] = append(grouped[c], r)
	}

	strata := make([]Stratum, 0, len(grouped))
	for _, c := range Categories {
		if rs, ok := grouped[c]; ok {
			strata = append(strata, Stratum{Category: c, Records: rs})
		}
	}
	return strata, nil
}
