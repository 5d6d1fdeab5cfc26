package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/hotspotkeeper/internal/provision"
)

// HTTPStatus maps an engine error kind to a response status.
func HTTPStatus(kind provision.Kind) int {
	switch kind {
	case "":
		return http.StatusOK
	case provision.KindNotFound, provision.KindDeviceAccountMissing:
		return http.StatusNotFound
	case provision.KindDataIntegrity, provision.KindAlreadyActive, provision.KindDeviceDataMismatch:
		return http.StatusConflict
	case provision.KindSchedulingFailed, provision.KindActivationFailed, provision.KindVerificationFailed,
		provision.KindDeviceRejected, provision.KindAuth:
		return http.StatusBadGateway
	case provision.KindConnectivity:
		return http.StatusGatewayTimeout
	case provision.KindCommitWarning, provision.KindPartialRejection:
		return http.StatusOK
	case provision.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
