package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"jobprep/internal/errors"
	"jobprep/internal/utils"
)

// FileProcessor reads input documents and writes command output.
type FileProcessor struct {
	logger *errors.Logger
}

func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile returns the bytes of filename; "-" reads stdin.
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	if filename == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileReadFailed, "Failed to read stdin", err)
		}
		return content, nil
	}

	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileReadFailed,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	return content, nil
}

// DecodeFile reads filename into v. YAML is used for .yaml/.yml, JSON otherwise.
func (fp *FileProcessor) DecodeFile(filename string, v any) error {
	if filename != "-" {
		if err := utils.ValidateInputFile(filename); err != nil {
			return errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("Invalid file %s", filename), err)
		}
		if !utils.IsDataFile(filename) {
			fp.logger.Warn("File may not be a JSON or YAML document", "filename", filename)
		}
	}

	content, err := fp.ReadFile(filename)
	if err != nil {
		return err
	}

	if utils.IsYAMLFile(filename) {
		err = yaml.Unmarshal(content, v)
	} else {
		err = json.Unmarshal(content, v)
	}
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Cannot parse %s", filename), err)
	}
	return nil
}

// WriteFile writes content, creating parent directories.
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}
	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}
