package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
	"github.com/dmitrijs2005/hotspotkeeper/internal/provision"
)

func TestParseDecisionToken(t *testing.T) {
	action, d, err := ParseDecisionToken("approve|01712345678|user4821|10.0.0.5|7_days")
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, action)
	assert.Equal(t, provision.Decision{
		PayerRef: "01712345678", Username: "user4821", Address: "10.0.0.5", Package: "7_days",
	}, d)

	action, _, err = ParseDecisionToken("REJECT|p|u|ip|pkg")
	require.NoError(t, err)
	assert.Equal(t, ActionReject, action)
}

func TestParseDecisionToken_Invalid(t *testing.T) {
	for name, token := range map[string]string{
		"too few fields":  "approve|p|u|ip",
		"too many fields": "approve|p|u|ip|pkg|extra",
		"unknown action":  "ban|p|u|ip|pkg",
		"empty username":  "approve|p||ip|pkg",
		"empty":           "",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseDecisionToken(token)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 200, HTTPStatus(""))
	assert.Equal(t, 404, HTTPStatus(provision.KindNotFound))
	assert.Equal(t, 409, HTTPStatus(provision.KindAlreadyActive))
	assert.Equal(t, 409, HTTPStatus(provision.KindDataIntegrity))
	assert.Equal(t, 502, HTTPStatus(provision.KindSchedulingFailed))
	assert.Equal(t, 504, HTTPStatus(provision.KindConnectivity))
	assert.Equal(t, 200, HTTPStatus(provision.KindPartialRejection))
	assert.Equal(t, 401, HTTPStatus(provision.KindUnauthorized))
	assert.Equal(t, 500, HTTPStatus(provision.KindInternal))
}
