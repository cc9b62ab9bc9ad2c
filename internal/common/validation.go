package common

import (
	"fmt"
	"slices"

	"jobprep/internal/errors"
	"jobprep/internal/utils"
)

// binaryFormats cannot be printed to a terminal.
var binaryFormats = []string{"xlsx"}

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}
	if slices.Contains(supportedFormats, format) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats), nil).
		WithContext("format", format)
}

// ResolveFormat picks the output format. An explicit format wins, then the
// output file extension, then fallback.
func ResolveFormat(format, outputFile, fallback string) string {
	if format != "" {
		return format
	}
	switch utils.GetFileExtension(outputFile) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".md", ".markdown":
		return "markdown"
	case ".txt":
		return "text"
	case ".xlsx":
		return "xlsx"
	}
	return fallback
}

// IsBinaryFormat reports formats that must go to a file.
func IsBinaryFormat(format string) bool {
	return slices.Contains(binaryFormats, format)
}
