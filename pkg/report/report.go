// Package report holds the summary a processing step hands to the next one:
// a headline, an ordered list of field names and a field → value mapping.
//
// The same shape is produced by the package importer upstream and by the
// reconciler, and is consumed by the notification sinks.
package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/patchpilot/pkg/constants"
	"github.com/agentstation/patchpilot/pkg/errors"
)

// Summary is a structured step result.
type Summary struct {
	SummaryText string           `json:"summary_text" yaml:"summary_text"`
	Fields      []string         `json:"report_fields,omitempty" yaml:"report_fields,omitempty"`
	Data        map[string]Value `json:"data" yaml:"data"`
}

// Fact is one name/value line of a summary.
type Fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// New creates a summary whose fields are all present and empty.
func New(text string, fields ...string) *Summary {
	s := &Summary{
		SummaryText: text,
		Fields:      append([]string(nil), fields...),
		Data:        make(map[string]Value, len(fields)),
	}
	for _, f := range fields {
		s.Data[f] = String("")
	}
	return s
}

// Get returns the value of a field and whether it is present.
func (s *Summary) Get(field string) (Value, bool) {
	if s == nil || s.Data == nil {
		return Value{}, false
	}
	v, ok := s.Data[field]
	return v, ok
}

// Text returns the text form of a field, or "" when absent.
func (s *Summary) Text(field string) string {
	v, _ := s.Get(field)
	return v.String()
}

// Set stores a field value, appending the field name when it is new.
func (s *Summary) Set(field string, v Value) {
	if s.Data == nil {
		s.Data = make(map[string]Value)
	}
	if _, ok := s.Data[field]; !ok && !s.hasField(field) {
		s.Fields = append(s.Fields, field)
	}
	s.Data[field] = v
}

func (s *Summary) hasField(field string) bool {
	for _, f := range s.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Order returns the field names in report order: declared fields first,
// then any undeclared data keys sorted by name.
func (s *Summary) Order() []string {
	order := make([]string, 0, len(s.Data))
	seen := make(map[string]bool, len(s.Data))
	for _, f := range s.Fields {
		if _, ok := s.Data[f]; ok && !seen[f] {
			order = append(order, f)
			seen[f] = true
		}
	}

	var rest []string
	for k := range s.Data {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// Facts returns the summary as name/value lines in report order.
func (s *Summary) Facts() []Fact {
	order := s.Order()
	facts := make([]Fact, 0, len(order))
	for _, name := range order {
		facts = append(facts, Fact{Name: name, Value: s.Data[name].String()})
	}
	return facts
}

// Parse decodes a summary. format is "json" or "yaml"; an empty format
// sniffs the first non-space byte.
func Parse(data []byte, format string) (*Summary, error) {
	if format == "" {
		format = "yaml"
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			format = "json"
		}
	}

	var s Summary
	switch format {
	case "json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, errors.WrapParse("yaml", "", err)
		}
	default:
		return nil, errors.NewValidationError("format", format, "must be json or yaml")
	}

	if s.Data == nil {
		return nil, errors.NewValidationError("data", nil, "summary has no data section")
	}
	return &s, nil
}

// Load reads a summary file. The format follows the file extension.
func Load(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	s, err := Parse(data, formatOf(path))
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	return s, nil
}

// Save writes a summary file. The format follows the file extension.
func Save(path string, s *Summary) error {
	var (
		data   []byte
		err    error
		format = formatOf(path)
	)
	if format == "yaml" {
		data, err = yaml.Marshal(s)
	} else {
		format = "json"
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return errors.WrapParse(format, path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("mkdir", dir, err)
		}
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}
