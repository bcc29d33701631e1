package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestEnsure(t *testing.T) {
	assert.Equal(t, NullLogger, Ensure(nil))

	logger := logrus.New()
	assert.Equal(t, logrus.FieldLogger(logger), Ensure(logger))
}
