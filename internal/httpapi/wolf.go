package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/assistant"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/chat"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/search"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/wolf"
)

const (
	chatMaxLen = 1000
	taskMinLen = 5
	taskMaxLen = 500

	defaultSearchWolf = "scout"
)

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	if s.opts.Assistant == nil {
		WriteError(w, http.StatusInternalServerError, "Assistant not configured")
		return
	}
	var req assistant.Request
	if err := decode(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.opts.Assistant.Handle(r.Context(), req)
	var perr *assistant.PaymentError
	failed := false
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, out)
	case errors.Is(err, assistant.ErrMissingWolfID):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assistant.ErrMissingSignature):
		WriteJSON(w, http.StatusBadRequest, errorBody{Success: &failed, Error: err.Error()})
	case errors.As(err, &perr):
		WriteJSON(w, http.StatusBadRequest, errorBody{Success: &failed, Error: perr.Error()})
	default:
		logger.Error().Err(err).Str("wolf", req.WolfID).Str("action", req.Action).Msg("assistant request failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleBrain(w http.ResponseWriter, r *http.Request) {
	if s.opts.Brain == nil {
		WriteError(w, http.StatusInternalServerError, "Wolf brain not configured")
		return
	}
	var req wolf.Request
	if err := decode(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.WolfName == "" || req.Message == "" {
		WriteError(w, http.StatusBadRequest, "Missing wolfName or message")
		return
	}
	WriteJSON(w, http.StatusOK, s.opts.Brain.Respond(r.Context(), req))
}

type searchRequest struct {
	Query      string      `json:"query"`
	WolfType   string      `json:"wolfType"`
	SearchType search.Type `json:"searchType"`
}

type searchResponse struct {
	Success  bool            `json:"success"`
	Response string          `json:"response"`
	Results  []search.Result `json:"results,omitempty"`
	Query    string          `json:"query,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, "Missing query")
		return
	}
	wolfType := req.WolfType
	if wolfType == "" {
		wolfType = defaultSearchWolf
	}

	var results []search.Result
	err := search.ErrNotConfigured
	if s.opts.Searcher != nil {
		results, err = s.opts.Searcher.Search(r.Context(), req.SearchType.Query(req.Query), search.DefaultCount)
	}
	if err != nil {
		logger.Warn().Err(err).Str("query", req.Query).Msg("search failed")
		WriteJSON(w, http.StatusOK, searchResponse{
			Response: fmt.Sprintf("*sniffs around* couldn't search right now: %v. try again later?", err),
			Error:    err.Error(),
		})
		return
	}
	WriteJSON(w, http.StatusOK, searchResponse{
		Success:  true,
		Response: search.Format(results, req.Query, wolfType),
		Results:  results,
		Query:    req.Query,
	})
}

type workRequest struct {
	Type string `json:"type"`
	Task string `json:"task"`
}

type workResponse struct {
	Success   bool   `json:"success"`
	Type      string `json:"type"`
	Task      string `json:"task"`
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleWork(w http.ResponseWriter, r *http.Request) {
	var req workRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.opts.Chat == nil || !slices.Contains(s.opts.Chat.WorkTypes(), req.Type) {
		WriteError(w, http.StatusBadRequest, "Invalid wolf type. Use: research, monitor, analyst")
		return
	}
	if n := utf8.RuneCountInString(req.Task); n < taskMinLen {
		WriteError(w, http.StatusBadRequest, "Task too short. Be specific.")
		return
	} else if n > taskMaxLen {
		WriteError(w, http.StatusBadRequest, "Task too long. Max 500 characters.")
		return
	}

	result, err := s.opts.Chat.Work(r.Context(), req.Type, req.Task)
	failed := false
	switch {
	case errors.Is(err, chat.ErrNotConfigured):
		WriteError(w, http.StatusInternalServerError, "Wolf brain not configured (missing API key)")
		return
	case err != nil:
		logger.Error().Err(err).Str("type", req.Type).Msg("work task failed")
		WriteJSON(w, http.StatusBadGateway, errorBody{Success: &failed, Error: err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, workResponse{
		Success:   true,
		Type:      req.Type,
		Task:      req.Task,
		Result:    result,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
}

type chatRequest struct {
	Message  string    `json:"message"`
	Context  chat.Mode `json:"context"`
	WolfType string    `json:"wolfType"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.opts.ChatLimit.Allow(ip) {
		WriteError(w, http.StatusTooManyRequests, "slow down! max 20 messages per hour. try again later.")
		return
	}
	if s.opts.Chat == nil || !s.opts.Chat.Configured() {
		WriteError(w, http.StatusServiceUnavailable, "wolf is sleeping. try again later.")
		return
	}

	var req chatRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, "message required")
		return
	}
	if utf8.RuneCountInString(req.Message) > chatMaxLen {
		WriteError(w, http.StatusBadRequest, "message too long (max 1000 chars)")
		return
	}
	switch req.Context {
	case "", chat.WebChat, chat.WolfTask, chat.WolfFollowup:
	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown context: %s", req.Context))
		return
	}

	reply, err := s.opts.Chat.Reply(r.Context(), ip, req.Message, req.Context, req.WolfType)
	if err != nil {
		logger.Error().Err(err).Str("ip", ip).Msg("chat reply failed")
		WriteError(w, http.StatusBadGateway, "wolf encountered an error. try again.")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"reply": reply})
}
