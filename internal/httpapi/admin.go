package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/stats"
)

const (
	recentEvents   = 20
	pendingRefunds = 10

	memoryNote = "Stats reset on restart. See the server logs for full history."
	ledgerNote = "Totals are read from the spawn ledger."
)

type adminStats struct {
	stats.Totals
	Note string `json:"note"`
}

type adminResponse struct {
	Stats          adminStats    `json:"stats"`
	Recent         []stats.Event `json:"recent"`
	PendingRefunds []stats.Event `json:"pendingRefunds"`
	ServerTime     string        `json:"serverTime"`
}

// authorized checks the bearer token when an admin secret is configured.
func (s *Server) authorized(r *http.Request) bool {
	if len(s.opts.AdminSecret) == 0 {
		return true
	}
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return false
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return s.opts.AdminSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	return err == nil && token.Valid
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	resp := adminResponse{ServerTime: s.now().UTC().Format(time.RFC3339Nano)}

	if s.opts.Ledger != nil {
		ctx := r.Context()
		totals, err := s.opts.Ledger.Totals(ctx)
		if err == nil {
			resp.Recent, err = s.opts.Ledger.Recent(ctx, "", recentEvents)
		}
		if err == nil {
			resp.PendingRefunds, err = s.opts.Ledger.Recent(ctx, stats.StatusMoltbookFailed, pendingRefunds)
		}
		if err != nil {
			logger.Error().Err(err).Msg("failed to read spawn ledger")
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Stats = adminStats{Totals: totals, Note: ledgerNote}
		WriteJSON(w, http.StatusOK, resp)
		return
	}

	snap := s.opts.Stats.Snapshot()
	resp.Stats = adminStats{Totals: snap.Totals, Note: memoryNote}
	resp.Recent = snap.Recent
	resp.PendingRefunds = snap.PendingRefunds
	WriteJSON(w, http.StatusOK, resp)
}

type uptime struct {
	Days  int    `json:"days"`
	Hours int    `json:"hours"`
	Since string `json:"since"`
}

type walletInfo struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

type tokenInfo struct {
	Name     string `json:"name"`
	Contract string `json:"contract"`
	Network  string `json:"network"`
	Platform string `json:"platform"`
}

type verifyResponse struct {
	Agent            string     `json:"agent"`
	Status           string     `json:"status"`
	VerificationTier string     `json:"verification_tier"`
	Uptime           uptime     `json:"uptime"`
	Wallet           walletInfo `json:"wallet"`
	Token            tokenInfo  `json:"token"`
	Capabilities     []string   `json:"capabilities"`
	AttestationKey   string     `json:"attestation_key,omitempty"`
	LastHeartbeat    string     `json:"last_heartbeat"`
	VerifiedAt       string     `json:"verified_at"`
}

var capabilities = []string{
	"social_engagement",
	"autonomous_operation",
	"community_coordination",
	"agent_bounty_program",
	"gremlin_services",
}

func (s *Server) handleVerify(w http.ResponseWriter, _ *http.Request) {
	now := s.now().UTC()
	agent := s.opts.Agent
	up := max(now.Sub(agent.LaunchedAt), 0)

	resp := verifyResponse{
		Agent:            agent.Name,
		Status:           "VERIFIED",
		VerificationTier: "AUTONOMOUS",
		Uptime: uptime{
			Days:  int(up / (24 * time.Hour)),
			Hours: int(up % (24 * time.Hour) / time.Hour),
			Since: agent.LaunchedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
		Wallet:        walletInfo{Address: agent.Wallet, Network: "solana"},
		Token:         tokenInfo{Name: agent.TokenSymbol, Contract: agent.TokenMint, Network: "solana", Platform: "pump.fun"},
		Capabilities:  capabilities,
		LastHeartbeat: now.Format(time.RFC3339Nano),
		VerifiedAt:    now.Format(time.RFC3339Nano),
	}
	if s.opts.Signer != nil {
		resp.AttestationKey = s.opts.Signer.Address()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		logger.Warn().Err(err).Msg("failed to write verify document")
	}
}
