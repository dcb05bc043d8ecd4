package httpapi

import (
	"net/http"
	"sync/atomic"

	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setSecretReq struct {
	Value string `json:"value"`
}

// SetBackendAPIKey stores the tracker API key in the OS keychain. It takes
// effect on the next start.
func (h SecretsHandler) SetBackendAPIKey(w http.ResponseWriter, r *http.Request) {
	var req setSecretReq
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetBackendAPIKey(cfg, req.Value); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_error", "failed to store api key: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) SetTelegramToken(w http.ResponseWriter, r *http.Request) {
	var req setSecretReq
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := secrets.SetTelegramToken(req.Value); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_error", "failed to store token: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
