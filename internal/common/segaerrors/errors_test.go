package segaerrors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := map[string]struct {
		err      error
		expected string
	}{
		"invalid argument without message": {
			err:      &ErrInvalidArgument{Name: "theta", Value: 0.0},
			expected: `value 0 is invalid for argument "theta"`,
		},
		"invalid argument with message": {
			err:      &ErrInvalidArgument{Name: "passes", Value: -1, Message: "outside allowed range [1, Inf)"},
			expected: `value -1 is invalid for argument "passes"; outside allowed range [1, Inf)`,
		},
		"shape mismatch without message": {
			err:      &ErrShapeMismatch{Name: "s", Got: []int{3}, Want: []int{2}},
			expected: `argument "s" has shape [3] but shape [2] is required`,
		},
		"shape mismatch with message": {
			err:      &ErrShapeMismatch{Name: "binv", Got: []int{2, 3}, Want: []int{2, 2}, Message: "preconditioner must be square"},
			expected: `argument "binv" has shape [2 3] but shape [2 2] is required; preconditioner must be square`,
		},
		"unsupported without message": {
			err:      &ErrUnsupported{Operation: "ProjectBatch"},
			expected: `operation "ProjectBatch" is unsupported`,
		},
		"unsupported with message": {
			err:      &ErrUnsupported{Operation: "ProjectBatch", Message: "non-identity preconditioner"},
			expected: `operation "ProjectBatch" is unsupported; non-identity preconditioner`,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestErrorsAsThroughStack(t *testing.T) {
	err := errors.WithStack(&ErrShapeMismatch{Name: "obs", Got: []int{1}, Want: []int{2}})
	var target *ErrShapeMismatch
	assert.ErrorAs(t, err, &target)
	assert.Equal(t, "obs", target.Name)
}
