package validation

import (
	"fmt"

	dErrors "shebuilds/pkg/domain-errors"
)

// MaxBodySize bounds JSON request bodies (256 KB leaves room for a full batch).
const MaxBodySize = 256 * 1024

const (
	// MaxBatchSize is the largest batch mint accepted over HTTP.
	MaxBatchSize = 100

	MaxSkillCategoryLength = 64
	MaxMetadataURILength   = 2048
	MaxReasonLength        = 512
)

// CheckSliceCount rejects slices longer than max.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

func CheckEachStringLength(fieldName string, values []string, max int) error {
	for i, v := range values {
		if len(v) > max {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s[%d] exceeds max length of %d", fieldName, i, max))
		}
	}
	return nil
}
