package httpapi

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/keys"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/moltbook"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/payment"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/solana"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/stats"
)

const (
	defaultWolfType = "custom"
	tierPremium     = "premium"
)

var nameDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\s_-]`)

type spawnRequest struct {
	WolfName    string `json:"wolfName"`
	WolfType    string `json:"wolfType"`
	Description string `json:"description"`
	Tier        string `json:"tier"`
	TxSignature string `json:"txSignature"`
}

type spawnPayment struct {
	Amount      json.Number `json:"amount"`
	Token       string      `json:"token"`
	TxSignature string      `json:"txSignature"`
}

type spawnResponse struct {
	Success     bool                   `json:"success"`
	WolfID      string                 `json:"wolfId"`
	WolfName    string                 `json:"wolfName"`
	WolfType    string                 `json:"wolfType"`
	Tier        string                 `json:"tier"`
	Payment     spawnPayment           `json:"payment"`
	Note        string                 `json:"note"`
	Moltbook    *moltbook.Registration `json:"moltbook,omitempty"`
	Attestation *keys.Attestation      `json:"attestation,omitempty"`
}

func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := clientIP(r)

	var req spawnRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if n := utf8.RuneCountInString(req.WolfName); n < 2 || n > 32 {
		s.record(ctx, stats.Event{Status: stats.StatusRejected, Reason: "invalid_name", IP: ip})
		WriteError(w, http.StatusBadRequest, "Wolf name must be 2-32 characters")
		return
	}
	name := strings.TrimSpace(nameDisallowed.ReplaceAllString(req.WolfName, ""))
	if len(name) < 2 {
		WriteError(w, http.StatusBadRequest, "Wolf name contains invalid characters")
		return
	}
	if n := utf8.RuneCountInString(req.Description); n < 5 || n > 200 {
		s.record(ctx, stats.Event{Status: stats.StatusRejected, Reason: "invalid_description", IP: ip})
		WriteError(w, http.StatusBadRequest, "Description must be 5-200 characters")
		return
	}
	price, ok := s.opts.Prices[req.Tier]
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid tier")
		return
	}
	if n := len(req.TxSignature); n < 80 || n > 100 {
		WriteError(w, http.StatusBadRequest, "Invalid transaction signature format")
		return
	}
	if _, err := solana.ParseSignature(req.TxSignature); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid transaction signature format")
		return
	}

	if s.opts.Verifier == nil {
		WriteError(w, http.StatusInternalServerError, "Payment verification not configured")
		return
	}
	verdict, err := s.opts.Verifier.Verify(ctx, req.TxSignature, s.opts.SpawnKind, price)
	if err != nil {
		verdict = payment.Unverifiable(err)
	}
	if !verdict.Valid {
		s.record(ctx, stats.Event{
			Status:      stats.StatusPaymentFailed,
			Reason:      verdict.Error,
			TxSignature: req.TxSignature[:20] + "...",
			IP:          ip,
		})
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: "Payment verification failed", Details: verdict.Error})
		return
	}

	wallet := stats.TruncateWallet(verdict.Sender)
	if d := s.opts.Cooldown.Check(verdict.Sender); !d.Allowed {
		s.record(ctx, stats.Event{Status: stats.StatusRateLimited, Wallet: wallet, IP: ip})
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
		WriteError(w, http.StatusTooManyRequests, fmt.Sprintf("Rate limited. Try again in %d seconds.", d.RetryAfter))
		return
	}

	wolfType := req.WolfType
	if wolfType == "" {
		wolfType = defaultWolfType
	}
	resp := spawnResponse{
		Success:  true,
		WolfName: name,
		WolfType: wolfType,
		Tier:     req.Tier,
		Payment: spawnPayment{
			Amount:      json.Number(verdict.Amount.String()),
			Token:       s.opts.SpawnKind.Symbol(),
			TxSignature: req.TxSignature,
		},
	}

	if s.opts.Registrar != nil {
		reg, err := s.opts.Registrar.Register(ctx, name, req.Description)
		if err != nil {
			s.record(ctx, stats.Event{
				Status:   stats.StatusMoltbookFailed,
				WolfName: name,
				Tier:     req.Tier,
				Amount:   verdict.Amount.String(),
				Wallet:   wallet,
				Reason:   err.Error(),
				IP:       ip,
			})
			WriteError(w, http.StatusBadGateway, err.Error())
			return
		}
		resp.Moltbook = &reg
	}

	resp.WolfID = newWolfID(s.now().UnixMilli())
	if resp.Tier == tierPremium {
		resp.Note = fmt.Sprintf("Wolf spawned! Your wolf %s is ready. DM @darkflobi to activate.", name)
	} else {
		resp.Note = fmt.Sprintf("Wolf spawned! DM @darkflobi to assign tasks to %s.", name)
	}

	if s.opts.Signer != nil {
		att, err := s.opts.Signer.Attest(resp.WolfID, name, req.Tier, req.TxSignature, verdict.Amount.String())
		if err != nil {
			logger.Error().Err(err).Str("wolf", resp.WolfID).Msg("failed to sign spawn attestation")
		} else {
			resp.Attestation = &att
		}
	}

	s.record(ctx, stats.Event{
		Status:   stats.StatusSuccess,
		WolfID:   resp.WolfID,
		WolfName: name,
		WolfType: wolfType,
		Tier:     req.Tier,
		Amount:   verdict.Amount.String(),
		Wallet:   wallet,
	})
	WriteJSON(w, http.StatusOK, resp)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newWolfID returns wolf-<base36 millis>-<6 random base36 chars>.
func newWolfID(ms int64) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return "wolf-" + strconv.FormatInt(ms, 36) + "-" + string(suffix)
}
