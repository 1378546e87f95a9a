package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/agentstation/patchpilot/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestValue(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		truthy bool
		text   string
		json   string
	}{
		{name: "true", value: Bool(true), truthy: true, text: "True", json: `true`},
		{name: "false", value: Bool(false), truthy: false, text: "", json: `""`},
		{name: "string", value: String("Firefox"), truthy: true, text: "Firefox", json: `"Firefox"`},
		{name: "empty string", value: String(""), truthy: false, text: "", json: `""`},
		{name: "zero value", value: Value{}, truthy: false, text: "", json: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.truthy, tt.value.Truthy())
			assert.Equal(t, tt.text, tt.value.String())

			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(data))
		})
	}
}

func TestValueOf(t *testing.T) {
	assert.Equal(t, Bool(true), ValueOf(true))
	assert.Equal(t, Bool(false), ValueOf(false))
	assert.Equal(t, String("x"), ValueOf("x"))
	assert.Equal(t, String(""), ValueOf(nil))
	assert.Equal(t, String("12"), ValueOf(float64(12)))
	assert.Equal(t, String("3"), ValueOf(uint64(3)))
	assert.Equal(t, String("10.10"), ValueOf(json.Number("10.10")))
	assert.True(t, ValueOf(String("a")).Equal(String("a")))
	assert.False(t, Bool(false).Equal(String("")))
}

func TestValueUnmarshalJSON(t *testing.T) {
	var data map[string]Value
	require.NoError(t, json.Unmarshal([]byte(`{"a": true, "b": "", "c": "x", "d": null}`), &data))

	assert.True(t, data["a"].IsBool())
	assert.True(t, data["a"].Bool())
	assert.Equal(t, String(""), data["b"])
	assert.Equal(t, String("x"), data["c"])
	assert.Equal(t, String(""), data["d"])
}

func TestSummaryOrderAndFacts(t *testing.T) {
	s := New("headline", "B", "A")
	s.Set("A", String("a"))
	s.Set("Z", Bool(true))
	s.Set("C", Bool(false))

	assert.Equal(t, []string{"B", "A", "Z", "C"}, s.Fields)
	assert.Equal(t, []Fact{
		{Name: "B", Value: ""},
		{Name: "A", Value: "a"},
		{Name: "Z", Value: "True"},
		{Name: "C", Value: ""},
	}, s.Facts())

	s.Fields = []string{"A"}
	assert.Equal(t, []string{"A", "B", "C", "Z"}, s.Order())
}

func TestSummaryGet(t *testing.T) {
	var nilSummary *Summary
	_, ok := nilSummary.Get("x")
	assert.False(t, ok)

	s := New("", "present")
	v, ok := s.Get("present")
	assert.True(t, ok)
	assert.False(t, v.Truthy())

	_, ok = s.Get("absent")
	assert.False(t, ok)
	assert.Empty(t, s.Text("absent"))
}

const importerJSON = `{
  "summary_text": "The following changes were made to the JSS:",
  "report_fields": ["Name", "Package", "Version", "Package_Uploaded"],
  "data": {
    "Name": "Firefox",
    "Package": "Firefox-121.0.pkg",
    "Version": "121.0",
    "Package_Uploaded": true
  }
}`

const importerYAML = `summary_text: "The following changes were made to the JSS:"
data:
  Name: Firefox
  Package: Firefox-121.0.pkg
  Version: "121.0"
  Package_Uploaded: ""
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(importerJSON), "")
	require.NoError(t, err)
	assert.Equal(t, "The following changes were made to the JSS:", s.SummaryText)
	assert.Equal(t, []string{"Name", "Package", "Version", "Package_Uploaded"}, s.Fields)
	assert.Equal(t, "Firefox-121.0.pkg", s.Text("Package"))
	assert.Equal(t, Bool(true), s.Data["Package_Uploaded"])

	s, err = Parse([]byte(importerYAML), "")
	require.NoError(t, err)
	assert.Equal(t, "121.0", s.Text("Version"))
	assert.False(t, s.Data["Package_Uploaded"].Truthy())
}

func TestParseKeepsNumericLiterals(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		summary string
	}{
		{name: "yaml", format: "yaml", summary: "data:\n  Version: %s\n"},
		{name: "yaml with comment", format: "yaml", summary: "data:\n  Version: %s # from vendor feed\n"},
		{name: "json", format: "json", summary: `{"data": {"Version": %s}}`},
	}

	for _, tt := range tests {
		for _, version := range []string{"10.10", "121.0", "3.20", "121", "1.0e3"} {
			t.Run(tt.name+"/"+version, func(t *testing.T) {
				s, err := Parse([]byte(fmt.Sprintf(tt.summary, version)), tt.format)
				require.NoError(t, err)
				assert.Equal(t, String(version), s.Data["Version"])
			})
		}
	}
}

func TestScalarText(t *testing.T) {
	assert.Equal(t, "10.10", scalarText([]byte("10.10")))
	assert.Equal(t, "10.10", scalarText([]byte("  10.10 # vendor\n")))
	assert.Equal(t, "121.0", scalarText([]byte("# leading\n121.0")))
	assert.Equal(t, "", scalarText([]byte("# only a comment")))
}

func TestParseYAMLScalars(t *testing.T) {
	s, err := Parse([]byte(`data:
  Uploaded: true
  Quoted: "10.10"
  Empty:
  Name: Firefox ESR
`), "yaml")
	require.NoError(t, err)

	assert.Equal(t, Bool(true), s.Data["Uploaded"])
	assert.Equal(t, String("10.10"), s.Data["Quoted"])
	assert.Equal(t, "", s.Text("Empty"))
	assert.Equal(t, String("Firefox ESR"), s.Data["Name"])
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"summary_text": `), "json")
	var pe *errors.ParseError
	assert.ErrorAs(t, err, &pe)

	_, err = Parse([]byte(`{"summary_text": "x"}`), "json")
	assert.True(t, errors.IsValidationError(err))

	_, err = Parse([]byte(`x`), "toml")
	assert.True(t, errors.IsValidationError(err))
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"report.json", "report.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)

			s := New("The following changes were made to the Patch Management:", "Package", "Package Uploaded")
			s.Set("Package", String("Firefox-121.0.pkg"))
			s.Set("Package Uploaded", Bool(false))
			require.NoError(t, Save(path, s))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, s.SummaryText, loaded.SummaryText)
			assert.Equal(t, s.Fields, loaded.Fields)
			assert.Equal(t, "Firefox-121.0.pkg", loaded.Text("Package"))

			// false booleans cross the file boundary as empty strings
			assert.Equal(t, String(""), loaded.Data["Package Uploaded"])
		})
	}
}

func TestSaveYAMLTrue(t *testing.T) {
	s := New("x", "created")
	s.Set("created", Bool(true))

	data, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), "created: true")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestLoadParseErrorCarriesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := Load(path)
	var pe *errors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path, pe.File)
}
