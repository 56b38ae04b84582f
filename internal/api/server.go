// Package api exposes rolls, set changes and tuning simulations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xtding233/gacha-stage/internal/gacha"
	"github.com/xtding233/gacha-stage/internal/progression"
	"github.com/xtding233/gacha-stage/internal/token"
)

const (
	maxPullsPerRequest = 100
	maxSimTrials       = 100_000
)

// Roller is the part of the roll engine the API drives.
type Roller interface {
	RollBatch(ctx context.Context, userID string, requested, carryOver int) (progression.PullBatch, error)
	ChangeActiveSet(ctx context.Context, userID, set string) error
	Purse() token.Purse
}

// Stage accepts batches for animation without blocking.
type Stage interface {
	Enqueue(batch progression.PullBatch) error
}

type Server struct {
	roller Roller
	stage  Stage
	rules  func() gacha.Rules
	log    logrus.FieldLogger
}

// New wires the handlers. rules reports the live tuning for simulations; stage may be nil.
func New(roller Roller, stage Stage, rules func() gacha.Rules, log logrus.FieldLogger) *Server {
	return &Server{roller: roller, stage: stage, rules: rules, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /roll", s.handleRoll)
	mux.HandleFunc("POST /set", s.handleSet)
	mux.HandleFunc("GET /simulate", s.handleSimulate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

type rollResp struct {
	Batch  *progression.PullBatch `json:"batch,omitempty"`
	Queued bool                   `json:"queued"`
	Err    string                 `json:"err,omitempty"`
}

type errResp struct {
	Err string `json:"err"`
}

type simResp struct {
	Goal    gacha.TrialGoal    `json:"goal"`
	Trials  int                `json:"trials"`
	Mean    float64            `json:"mean"`
	StdDev  float64            `json:"std_dev"`
	P50     float64            `json:"p50"`
	P90     float64            `json:"p90"`
	P99     float64            `json:"p99"`
	Capped  int                `json:"capped"`
	SetSize map[gacha.Tier]int `json:"set_size"`
}

func parseInt(r *http.Request, key string) (int, bool, string) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false, ""
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, "invalid " + key
	}
	return v, true, ""
}

// intParam returns def when key is absent.
func intParam(r *http.Request, key string, def int) (int, string) {
	v, ok, msg := parseInt(r, key)
	if msg != "" {
		return 0, msg
	}
	if !ok {
		return def, ""
	}
	return v, ""
}

func (s *Server) handleRoll(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "missing param user", http.StatusBadRequest)
		return
	}
	pulls, msg := intParam(r, "pulls", 1)
	if msg == "" && (pulls < 0 || pulls > maxPullsPerRequest) {
		msg = "pulls must be in [0,100]"
	}
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	carry, msg := intParam(r, "carry", 0)
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	// callers cap a single contribution before it reaches the engine
	carry = s.roller.Purse().Cap(carry)

	batch, err := s.roller.RollBatch(r.Context(), user, pulls, carry)
	if err != nil {
		code := statusFor(err)
		resp := rollResp{Err: err.Error()}
		// pulls persisted before the failure still get shown
		if len(batch.Outcomes) > 0 {
			resp.Batch = &batch
			resp.Queued = s.enqueue(batch)
		}
		s.log.WithError(err).WithField("user", user).Warn("roll failed")
		writeJSON(w, code, resp)
		return
	}

	writeJSON(w, http.StatusOK, rollResp{Batch: &batch, Queued: s.enqueue(batch)})
}

// enqueue reports whether the batch is waiting for the stage. A batch the stage turns
// away is reported as text by the stage itself.
func (s *Server) enqueue(batch progression.PullBatch) bool {
	if s.stage == nil || len(batch.Outcomes) == 0 {
		return false
	}
	if err := s.stage.Enqueue(batch); err != nil {
		s.log.WithError(err).WithField("batch", batch.ID).Warn("batch not queued for the stage")
		return false
	}
	return true
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	user, set := r.URL.Query().Get("user"), r.URL.Query().Get("set")
	if user == "" || set == "" {
		http.Error(w, "missing param user or set", http.StatusBadRequest)
		return
	}
	if err := s.roller.ChangeActiveSet(r.Context(), user, set); err != nil {
		writeJSON(w, statusFor(err), errResp{Err: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	goal := gacha.TrialGoal(r.URL.Query().Get("goal"))
	if goal == "" {
		goal = gacha.GoalCompletion
	}
	trials, msg := intParam(r, "trials", 1000)
	if msg == "" && (trials <= 0 || trials > maxSimTrials) {
		msg = "trials must be in [1,100000]"
	}
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	sizes := map[gacha.Tier]int{}
	defaults := map[gacha.Tier]int{gacha.TierUR: 1, gacha.TierSSR: 2, gacha.TierSR: 4, gacha.TierR: 8, gacha.TierN: 16}
	for _, t := range gacha.Tiers {
		n, msg := intParam(r, strings.ToLower(string(t)), defaults[t])
		if msg == "" && n < 0 {
			msg = "negative entry count for " + string(t)
		}
		if msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		sizes[t] = n
	}

	rng := gacha.DefaultRNG()
	seed, hasSeed, msg := parseInt(r, "seed")
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if hasSeed {
		rng = gacha.NewSeededRNG(uint64(seed))
	}

	st, err := gacha.RunMonteCarlo(gacha.SimParams{Rules: s.rules(), SetSize: sizes}, goal, trials, rng)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{Err: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, simResp{
		Goal: goal, Trials: trials,
		Mean: st.Mean, StdDev: st.StdDev, P50: st.P50, P90: st.P90, P99: st.P99,
		Capped: st.Capped, SetSize: sizes,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, progression.ErrUnknownUser), errors.Is(err, progression.ErrUnknownSet):
		return http.StatusNotFound
	case errors.Is(err, progression.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, progression.ErrNoCatalog):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
