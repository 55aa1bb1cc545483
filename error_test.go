package sitescan_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/sitescan"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := sitescan.Errorf(sitescan.ENOTFOUND, "site %q not found", "example.com")

	assert.Equal(t, sitescan.ENOTFOUND, sitescan.ErrorCode(err))
	assert.Equal(t, "site \"example.com\" not found", sitescan.ErrorMessage(err))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("open site: %w", sitescan.Errorf(sitescan.EINVALID, "bad seed"))

	assert.Equal(t, sitescan.EINVALID, sitescan.ErrorCode(err))
	assert.Equal(t, "bad seed", sitescan.ErrorMessage(err))
}

func TestErrorCode_NonApplicationError(t *testing.T) {
	t.Parallel()

	err := errors.New("disk full")

	assert.Equal(t, sitescan.EINTERNAL, sitescan.ErrorCode(err))
	assert.Equal(t, "Internal error", sitescan.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, sitescan.ErrorCode(nil))
	assert.Empty(t, sitescan.ErrorMessage(nil))
}
