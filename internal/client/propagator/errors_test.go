package propagator

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tyljohnny/davsync/internal/davclient"
)

func TestClassify_TransportErrorSeverity(t *testing.T) {
	soft := &davclient.TransportError{Soft: true}
	res := classify(soft, 0, 0)
	assert.Equal(t, StatusSoftError, res.Status)

	fatal := &davclient.TransportError{Fatal: true}
	res = classify(fatal, 0, 0)
	assert.Equal(t, StatusFatalError, res.Status)

	normal := &davclient.TransportError{Status: http.StatusInternalServerError}
	res = classify(normal, 0, 0)
	assert.Equal(t, StatusNormalError, res.Status)
}

func TestClassify_AbortedIsNormalError(t *testing.T) {
	res := classify(ErrAborted, 0, 0)
	assert.Equal(t, StatusNormalError, res.Status)
	assert.True(t, errors.Is(res.Err, ErrAborted))
}

func TestClassify_IgnoredStatusIsSuccess(t *testing.T) {
	res := classify(nil, http.StatusNotFound, http.StatusNotFound)
	assert.Equal(t, StatusSuccess, res.Status)
}

func TestClassify_2xxIsSuccess(t *testing.T) {
	res := classify(nil, http.StatusOK, 0)
	assert.Equal(t, StatusSuccess, res.Status)
}
