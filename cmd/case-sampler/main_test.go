package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvLongList = `family_name,first_name,dob,gender,sentence_type,crn,pnc,rosh_classification,start_date,end_date,cluster,ldu,team,responsible_officer
Smith,John,01/02/1980,M,Adult Licence,X1,P1,RLRH,05/01/2025,N,N01,N01LA2,T1,Mick Red
Jones,Ann,03/04/1990,F,ORA Community Order,X2,P2,RHRH,06/01/2025,N,N01,N01LA2,T1,Mick Red
Brown,Sue,03/04/1991,F,ORA Community Order,X3,P3,RHRH,07/01/2025,N,N02,N02LA1,T2,Ann Blue
Green,Tom,05/06/1985,M,ORA Community Order,X4,P4,RMRH,broken,N,N02,N02LA1,T2,Ann Blue
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSampleCSV(t *testing.T) {
	input := writeFile(t, "long-list.csv", csvLongList)
	jsonPath := filepath.Join(t.TempDir(), "sample.json")

	out, err := execute(t, "sample", "-i", input, "-n", "3", "--buffer", "0", "--seed", "11", "--json", jsonPath)
	require.NoError(t, err, out)

	assert.Contains(t, out, "Warnings:")
	assert.Contains(t, out, "line 5")
	assert.Contains(t, out, "Eligible:     3")
	assert.Contains(t, out, "Selected:     3")
	assert.Contains(t, out, "JSON written to "+jsonPath)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var summary struct {
		Results []struct {
			Row string `json:"row"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Len(t, summary.Results, 3)
}

func TestSampleJSONWithConfig(t *testing.T) {
	input := writeFile(t, "long-list.json", `[
		{"familyName":"Smith","firstName":"John","dob":"01/02/1980","gender":"M",
		 "sentenceType":"Adult Licence","crn":"X1","pnc":"P1","roshClassification":"RLRH",
		 "startDate":"05/01/2025","endDate":"N","cluster":"N01","ldu":"N01LA2",
		 "responsibleOfficer":"Mick Red"}
	]`)
	cfg := writeFile(t, "sampler.yaml", "sample:\n  buffer_percentage: 0\n  seed: 5\n")

	out, err := execute(t, "sample", "--config", cfg, "-i", input, "-n", "2")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Shortfall:    1")
	assert.Contains(t, out, "001. X1 | John Smith")
}

func TestSampleRequiresInput(t *testing.T) {
	_, err := execute(t, "sample", "-n", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestSampleRejectsInvalidOverride(t *testing.T) {
	input := writeFile(t, "long-list.csv", csvLongList)
	_, err := execute(t, "sample", "-i", input, "-n", "3", "--max-per-agent", "0")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "max_per_agent"))
}
