package routes

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"synthd/crypto"
	"synthd/native/vault"
	"synthd/observability"
)

// vaultRoutes exposes the vault engine's state transitions over HTTP.
type vaultRoutes struct {
	engine *vault.Engine
}

func newVaultRoutes(engine *vault.Engine) *vaultRoutes {
	return &vaultRoutes{engine: engine}
}

func (v *vaultRoutes) mount(r chi.Router) {
	r.Post("/deposit", v.deposit)
	r.Post("/mint", v.mint)
	r.Post("/redeem", v.redeem)
	r.Post("/burn", v.burn)
	r.Post("/deposit-and-mint", v.depositAndMint)
	r.Post("/redeem-for-synth", v.redeemForSynth)
	r.Post("/liquidate", v.liquidate)
	r.Get("/positions/{address}", v.position)
	r.Get("/positions/{address}/health", v.health)
	r.Get("/assets", v.assets)
	r.Get("/value/{asset}", v.value)
}

type mutationRequest struct {
	Account string `json:"account"`
	Asset   string `json:"asset,omitempty"`
	Amount  string `json:"amount"`
}

type compositeRequest struct {
	Account          string `json:"account"`
	Asset            string `json:"asset"`
	CollateralAmount string `json:"collateralAmount"`
	SynthAmount      string `json:"synthAmount"`
}

type liquidateRequest struct {
	Liquidator  string `json:"liquidator"`
	Account     string `json:"account"`
	Asset       string `json:"asset"`
	DebtToCover string `json:"debtToCover"`
}

type receiptResponse struct {
	Receipt string `json:"receipt"`
}

type liquidateResponse struct {
	Receipt          string `json:"receipt"`
	DebtCovered      string `json:"debtCovered"`
	CollateralSeized string `json:"collateralSeized"`
}

type positionResponse struct {
	Address    string            `json:"address"`
	Collateral map[string]string `json:"collateral"`
	Issued     string            `json:"issued"`
}

type healthResponse struct {
	Address            string `json:"address"`
	HealthFactor       string `json:"healthFactor,omitempty"`
	Bounded            bool   `json:"bounded"`
	CollateralValueUSD string `json:"collateralValueUsd"`
}

// finish records the operation outcome and, on failure, counts the rejection
// and writes the translated engine error. It reports whether the handler may
// proceed to its success response.
func (v *vaultRoutes) finish(w http.ResponseWriter, operation string, start time.Time, err error) bool {
	observability.Vault().Observe(operation, time.Since(start), err)
	if err != nil {
		observability.Vault().RecordRejection(operation, rejectionReason(err))
		writeEngineError(w, err)
		return false
	}
	return true
}

func (v *vaultRoutes) deposit(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, amount, ok := parseAccountAmount(w, req.Account, req.Amount)
	if !ok {
		return
	}
	start := time.Now()
	err := v.engine.DepositCollateral(account, req.Asset, amount)
	if !v.finish(w, "deposit", start, err) {
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{Receipt: uuid.NewString()})
}

func (v *vaultRoutes) mint(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, amount, ok := parseAccountAmount(w, req.Account, req.Amount)
	if !ok {
		return
	}
	start := time.Now()
	err := v.engine.MintSynth(account, amount)
	if !v.finish(w, "mint", start, err) {
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{Receipt: uuid.NewString()})
}

func (v *vaultRoutes) redeem(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, amount, ok := parseAccountAmount(w, req.Account, req.Amount)
	if !ok {
		return
	}
	start := time.Now()
	err := v.engine.RedeemCollateral(account, req.Asset, amount)
	if !v.finish(w, "redeem", start, err) {
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{Receipt: uuid.NewString()})
}

func (v *vaultRoutes) burn(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, amount, ok := parseAccountAmount(w, req.Account, req.Amount)
	if !ok {
		return
	}
	start := time.Now()
	err := v.engine.BurnSynth(account, amount)
	if !v.finish(w, "burn", start, err) {
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{Receipt: uuid.NewString()})
}

func (v *vaultRoutes) depositAndMint(w http.ResponseWriter, r *http.Request) {
	var req compositeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, collateralAmount, ok := parseAccountAmount(w, req.Account, req.CollateralAmount)
	if !ok {
		return
	}
	synthAmount, ok := parseAmount(w, req.SynthAmount)
	if !ok {
		return
	}
	start := time.Now()
	err := v.engine.DepositCollateralAndMint(account, req.Asset, collateralAmount, synthAmount)
	if !v.finish(w, "deposit_and_mint", start, err) {
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{Receipt: uuid.NewString()})
}

func (v *vaultRoutes) redeemForSynth(w http.ResponseWriter, r *http.Request) {
	var req compositeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, collateralAmount, ok := parseAccountAmount(w, req.Account, req.CollateralAmount)
	if !ok {
		return
	}
	synthAmount, ok := parseAmount(w, req.SynthAmount)
	if !ok {
		return
	}
	start := time.Now()
	err := v.engine.RedeemCollateralForSynth(account, req.Asset, collateralAmount, synthAmount)
	if !v.finish(w, "redeem_for_synth", start, err) {
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{Receipt: uuid.NewString()})
}

func (v *vaultRoutes) liquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	liquidator, err := crypto.DecodeAddress(strings.TrimSpace(req.Liquidator))
	if err != nil {
		writeBadRequest(w, "invalid liquidator address")
		return
	}
	account, debtToCover, ok := parseAccountAmount(w, req.Account, req.DebtToCover)
	if !ok {
		return
	}
	start := time.Now()
	repaid, seized, err := v.engine.Liquidate(liquidator, account, req.Asset, debtToCover)
	if !v.finish(w, "liquidate", start, err) {
		return
	}
	observability.Vault().RecordLiquidation(req.Asset)
	writeJSON(w, http.StatusOK, liquidateResponse{
		Receipt:          uuid.NewString(),
		DebtCovered:      repaid.String(),
		CollateralSeized: seized.String(),
	})
}

func (v *vaultRoutes) position(w http.ResponseWriter, r *http.Request) {
	account, ok := parsePathAddress(w, r)
	if !ok {
		return
	}
	pos, err := v.engine.PositionOf(account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := positionResponse{
		Address:    account.String(),
		Collateral: make(map[string]string, len(pos.Collateral)),
		Issued:     "0",
	}
	if pos.Issued != nil {
		resp.Issued = pos.Issued.String()
	}
	for symbol, amount := range pos.Collateral {
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		resp.Collateral[symbol] = amount.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (v *vaultRoutes) health(w http.ResponseWriter, r *http.Request) {
	account, ok := parsePathAddress(w, r)
	if !ok {
		return
	}
	factor, bounded, err := v.engine.HealthFactor(account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	value, err := v.engine.AccountCollateralValueUSD(account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := healthResponse{
		Address:            account.String(),
		Bounded:            bounded,
		CollateralValueUSD: value.String(),
	}
	if bounded {
		resp.HealthFactor = factor.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (v *vaultRoutes) assets(w http.ResponseWriter, _ *http.Request) {
	assets := v.engine.Assets()
	type assetEntry struct {
		Symbol string `json:"symbol"`
		FeedID string `json:"feedId"`
	}
	out := make([]assetEntry, 0, len(assets))
	for _, asset := range assets {
		out = append(out, assetEntry{Symbol: asset.Symbol, FeedID: asset.FeedID})
	}
	writeJSON(w, http.StatusOK, out)
}

func (v *vaultRoutes) value(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	raw := r.URL.Query().Get("amount")
	amount, ok := parseAmount(w, raw)
	if !ok {
		return
	}
	value, err := v.engine.USDValue(asset, amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"asset":    asset,
		"amount":   amount.String(),
		"usdValue": value.String(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeBadRequest(w, "malformed request body")
		return false
	}
	return true
}

func parseAccountAmount(w http.ResponseWriter, account, amount string) (crypto.Address, *big.Int, bool) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(account))
	if err != nil {
		writeBadRequest(w, "invalid account address")
		return crypto.Address{}, nil, false
	}
	value, ok := parseAmount(w, amount)
	if !ok {
		return crypto.Address{}, nil, false
	}
	return addr, value, true
}

func parseAmount(w http.ResponseWriter, raw string) (*big.Int, bool) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || value.Sign() <= 0 {
		writeBadRequest(w, "amount must be a positive integer string")
		return nil, false
	}
	return value, true
}

func parsePathAddress(w http.ResponseWriter, r *http.Request) (crypto.Address, bool) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, "invalid address")
		return crypto.Address{}, false
	}
	return addr, true
}
