package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
)

// Ensure StudyInfoLoader implements the interface.
var _ driven.StudyInfoLoader = (*StudyInfoLoader)(nil)

// StudyInfoLoader reads study info from YAML files.
type StudyInfoLoader struct{}

// NewStudyInfoLoader creates a study info loader.
func NewStudyInfoLoader() *StudyInfoLoader {
	return &StudyInfoLoader{}
}

// LoadStudyInfo decodes the file over defaults. Fields absent from the file
// keep their default values; unknown fields are rejected.
func (l *StudyInfoLoader) LoadStudyInfo(path string, defaults domain.StudyInfo) (domain.StudyInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("read study info: %w", err)
	}

	info := defaults
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&info); err != nil && !errors.Is(err, io.EOF) {
		return defaults, fmt.Errorf("parse study info %s: %w: %v", path, domain.ErrInvalidInput, err)
	}

	if err := info.Validate(); err != nil {
		return defaults, fmt.Errorf("study info %s: %w", path, err)
	}
	return info, nil
}

// WriteStudyInfoTemplate writes info as YAML, refusing to overwrite an
// existing file.
func WriteStudyInfoTemplate(path string, info domain.StudyInfo) error {
	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode study info: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create study info: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write study info: %w", err)
	}
	return f.Close()
}
