package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	nativecommon "synthd/native/common"
	"synthd/native/oracle"
	"synthd/native/token"
	"synthd/native/vault"
)

type errorResponse struct {
	Error string `json:"error"`
	// HealthFactor carries the offending 18-decimal factor when an
	// operation is rejected for breaking the solvency minimum.
	HealthFactor string `json:"healthFactor,omitempty"`
}

// writeEngineError translates vault engine failures into HTTP statuses. The
// split follows the failure class: bad input is 4xx, state conflicts are 409,
// unavailable dependencies are 503, and settlement failures are 502.
func writeEngineError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var breaks *vault.BreaksHealthFactorError
	switch {
	case errors.As(err, &breaks):
		status = http.StatusConflict
		if breaks.Factor != nil {
			resp.HealthFactor = breaks.Factor.String()
		}
	case errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, vault.ErrAmountOverflow),
		errors.Is(err, vault.ErrSelfLiquidation),
		errors.Is(err, token.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, vault.ErrAssetNotAllowed):
		status = http.StatusNotFound
	case errors.Is(err, vault.ErrInsufficientCollateral),
		errors.Is(err, vault.ErrInsufficientDebt),
		errors.Is(err, vault.ErrHealthFactorOK),
		errors.Is(err, vault.ErrHealthFactorNotImproved),
		errors.Is(err, vault.ErrCollateralBelowPrincipal),
		errors.Is(err, token.ErrInsufficientBalance):
		status = http.StatusConflict
	case errors.Is(err, vault.ErrReentrantCall),
		errors.Is(err, nativecommon.ErrModulePaused),
		errors.Is(err, oracle.ErrUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, vault.ErrTransferFailed),
		errors.Is(err, vault.ErrMintFailed):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, resp)
}

// rejectionReason maps an engine failure to the stable label recorded on the
// rejection counter.
func rejectionReason(err error) string {
	var breaks *vault.BreaksHealthFactorError
	switch {
	case errors.As(err, &breaks):
		return "breaks_health_factor"
	case errors.Is(err, vault.ErrInvalidAmount), errors.Is(err, token.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, vault.ErrAmountOverflow):
		return "amount_overflow"
	case errors.Is(err, vault.ErrSelfLiquidation):
		return "self_liquidation"
	case errors.Is(err, vault.ErrAssetNotAllowed):
		return "asset_not_allowed"
	case errors.Is(err, vault.ErrInsufficientCollateral):
		return "insufficient_collateral"
	case errors.Is(err, vault.ErrInsufficientDebt):
		return "insufficient_debt"
	case errors.Is(err, vault.ErrHealthFactorOK):
		return "health_factor_ok"
	case errors.Is(err, vault.ErrHealthFactorNotImproved):
		return "health_factor_not_improved"
	case errors.Is(err, vault.ErrCollateralBelowPrincipal):
		return "collateral_below_principal"
	case errors.Is(err, token.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, vault.ErrReentrantCall):
		return "reentrant_call"
	case errors.Is(err, nativecommon.ErrModulePaused):
		return "module_paused"
	case errors.Is(err, oracle.ErrUnavailable):
		return "oracle_unavailable"
	case errors.Is(err, vault.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, vault.ErrMintFailed):
		return "mint_failed"
	default:
		return "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}
