package formatters

import (
	"encoding/json"
	"fmt"
	"slices"

	"jobprep/internal/results"
	"jobprep/internal/types"
	"jobprep/internal/validation"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// Data type keys used for registration.
const (
	TypeAny             = "any"
	TypeReport          = "Report"
	TypeRecommendations = "Recommendations"
	TypeTranscript      = "InterviewTranscript"
	TypeFieldReport     = "FieldReport"
)

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry is the registry shared by the CLI commands.
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", TypeAny, &JSONFormatter{})
	registry.RegisterFormatter("yaml", TypeAny, &YAMLFormatter{})

	registry.RegisterFormatter("text", TypeReport, &ReportTextFormatter{})
	registry.RegisterFormatter("markdown", TypeReport, &ReportMarkdownFormatter{})
	registry.RegisterFormatter("xlsx", TypeReport, &ReportXLSXFormatter{})

	registry.RegisterFormatter("text", TypeRecommendations, &RecommendationsTextFormatter{})
	registry.RegisterFormatter("markdown", TypeRecommendations, &RecommendationsMarkdownFormatter{})

	registry.RegisterFormatter("text", TypeTranscript, &TranscriptTextFormatter{})
	registry.RegisterFormatter("markdown", TypeTranscript, &TranscriptMarkdownFormatter{})

	registry.RegisterFormatter("text", TypeFieldReport, &FieldReportTextFormatter{})
	registry.RegisterFormatter("markdown", TypeFieldReport, &FieldReportMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters[TypeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

// Supports reports whether format can render data.
func (fr *FormatterRegistry) Supports(data any, format string) bool {
	formatters, ok := fr.formatters[format]
	if !ok {
		return false
	}
	_, specific := formatters[getDataType(data)]
	_, generic := formatters[TypeAny]
	return specific || generic
}

func getDataType(data any) string {
	switch data.(type) {
	case results.Report, *results.Report:
		return TypeReport
	case types.Recommendations, *types.Recommendations:
		return TypeRecommendations
	case types.InterviewTranscript, *types.InterviewTranscript:
		return TypeTranscript
	case validation.Report, *validation.Report:
		return TypeFieldReport
	default:
		return TypeAny
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return TypeAny
}

// YAMLFormatter renders any data type through its JSON shape, so custom JSON
// marshalers and field names carry over.
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return TypeAny
}

func deref[T any](data any) (T, error) {
	switch v := data.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("expected %T, got %T", zero, data)
}
