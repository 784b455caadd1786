package validation

import (
	"errors"
	"fmt"
	"regexp"
)

// DatasetNamePattern определяет допустимый формат имени датасета
// Латинские буквы, цифры, подчеркивание, точка и дефис
var DatasetNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// MaxDatasetNameLen максимальная длина имени датасета
const MaxDatasetNameLen = 128

// ValidateDatasetName проверяет имя датасета.
// Имя попадает в путь URL и в имя bucket локального хранилища.
func ValidateDatasetName(name string) error {
	if name == "" {
		return errors.New("dataset name cannot be empty")
	}

	if len(name) > MaxDatasetNameLen {
		return fmt.Errorf("dataset name must not exceed %d characters", MaxDatasetNameLen)
	}

	if !DatasetNamePattern.MatchString(name) {
		return errors.New("dataset name can only contain letters (a-z, A-Z), numbers (0-9), underscores (_), dots (.) and hyphens (-)")
	}

	// "." и ".." ломают пути URL
	if name == "." || name == ".." {
		return fmt.Errorf("dataset name %q is reserved", name)
	}

	return nil
}
