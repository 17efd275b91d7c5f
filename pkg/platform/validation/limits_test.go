package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "shebuilds/pkg/domain-errors"
)

func TestLimits(t *testing.T) {
	assert.NoError(t, CheckSliceCount("credentials", MaxBatchSize, MaxBatchSize))
	err := CheckSliceCount("credentials", MaxBatchSize+1, MaxBatchSize)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	assert.NoError(t, CheckStringLength("skill_category", "React", MaxSkillCategoryLength))
	assert.Error(t, CheckStringLength("skill_category", strings.Repeat("x", MaxSkillCategoryLength+1), MaxSkillCategoryLength))

	err = CheckEachStringLength("metadata_uris", []string{"ipfs://a", strings.Repeat("x", 10)}, 9)
	assert.EqualError(t, err, "metadata_uris[1] exceeds max length of 9")
}
