// Package validation checks command line arguments before any work starts.
package validation

import (
	"fmt"
	"os"

	"fjacquet/card-expenses/internal/textextract"
)

// IsValidStatementFile checks that path is an existing regular file of a
// supported statement type.
func IsValidStatementFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	if !textextract.IsSupported(path) {
		return fmt.Errorf("unsupported file type: %s. Supported types are PDF, XLSX, XLS and CSV", path)
	}
	return nil
}

// IsValidDirectory checks that path exists and is a directory.
func IsValidDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	return nil
}

// IsValidReportFormat accepts the report formats; empty means no report.
func IsValidReportFormat(format string) error {
	switch format {
	case "", "json", "yaml", "yml":
		return nil
	default:
		return fmt.Errorf("unsupported report format: %s. Supported formats are 'json', 'yaml'", format)
	}
}

// IsValidShowFormat is IsValidReportFormat plus the table view.
func IsValidShowFormat(format string) error {
	if format == "table" {
		return nil
	}
	if format == "" {
		return fmt.Errorf("format cannot be empty")
	}
	return IsValidReportFormat(format)
}

// IsValidOutputOptions checks the CSV output flags of the extract command.
func IsValidOutputOptions(output, outputDir string, split bool) error {
	if output != "" && outputDir != "" {
		return fmt.Errorf("--output and --output-dir cannot be combined")
	}
	if split && output == "" && outputDir == "" {
		return fmt.Errorf("--split needs --output or --output-dir")
	}
	return nil
}

// IsValidFilePermissions rejects modes that let other users read a file
// holding secrets, such as a .env with the LLM API key.
func IsValidFilePermissions(mode os.FileMode) error {
	if mode.Perm()&0007 != 0 {
		return fmt.Errorf("file permissions are too permissive: %s. Recommended 0600", mode.Perm().String())
	}
	return nil
}
