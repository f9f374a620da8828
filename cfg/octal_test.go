package cfg

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOctalParsesPermissionBits(t *testing.T) {
	o, err := ParseOctal("755")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), o.FileMode().Perm())
}

func TestParseOctalRejectsNonOctalDigits(t *testing.T) {
	_, err := ParseOctal("999")
	assert.Error(t, err)
}

func TestParseOctalRejectsGarbage(t *testing.T) {
	_, err := ParseOctal("not-a-number")
	assert.Error(t, err)
}

func TestParseOctalAcceptsLeadingZero(t *testing.T) {
	o, err := ParseOctal("0644")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), o.FileMode().Perm())
}
