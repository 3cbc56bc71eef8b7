package cases

import (
	"encoding"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DecodeJSON reads a long-list encoded as a JSON array of records.
func DecodeJSON(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("unable to decode long-list: %w", err)
	}
	return records, nil
}

var requiredHeaders = []string{
	"familyname", "firstname", "dob", "gender", "sentencetype", "crn", "pnc",
	"roshclassification", "startdate", "cluster", "ldu", "responsibleofficer",
}

// LoadCSV reads a long-list exported as CSV. Header names are matched
// case-insensitively ignoring spaces and underscores, so both
// "responsible_officer" and "responsibleOfficer" are accepted. Rows that
// fail to parse are skipped and reported as warnings.
func LoadCSV(r io.Reader) ([]Record, []string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read header: %w", err)
	}
	index := mapHeaders(header)

	missing := missingHeaders(requiredHeaders, index)
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required headers: %s", strings.Join(missing, ", "))
	}

	var records []Record
	var warnings []string
	line := 1
	for {
		line++
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		record, err := parseRow(row, index)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		records = append(records, record)
	}

	return records, warnings, nil
}

func normalizeHeader(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(key)
}

func mapHeaders(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[normalizeHeader(name)] = i
	}
	return index
}

func missingHeaders(required []string, index map[string]int) []string {
	var missing []string
	for _, key := range required {
		if _, ok := index[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

func parseRow(row []string, index map[string]int) (Record, error) {
	get := func(key string) string {
		pos, ok := index[key]
		if !ok || pos >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[pos])
	}

	record := Record{
		FamilyName: get("familyname"),
		FirstName:  get("firstname"),
		DOB:        get("dob"),
		CRN:        get("crn"),
		PNC:        get("pnc"),
		Cluster:    get("cluster"),
		Unit:       get("ldu"),
		Team:       get("team"),
		Agent:      get("responsibleofficer"),
		Manager:    get("manager"),
		Officer:    get("officer"),
	}

	fields := []struct {
		name   string
		target encoding.TextUnmarshaler
	}{
		{"gender", &record.Gender},
		{"sentencetype", &record.SentenceType},
		{"roshclassification", &record.Risk},
		{"startdate", &record.StartDate},
		{"enddate", &record.EndDate},
	}
	for _, f := range fields {
		if err := f.target.UnmarshalText([]byte(get(f.name))); err != nil {
			return Record{}, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return record, nil
}
