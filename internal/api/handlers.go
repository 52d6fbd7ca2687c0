package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/config"
	"github.com/andresmejia3/stable/internal/preview"
	"github.com/andresmejia3/stable/internal/race"
	"github.com/andresmejia3/stable/internal/store"
	"github.com/andresmejia3/stable/internal/strategy"
	"github.com/andresmejia3/stable/internal/tuning"
	"github.com/andresmejia3/stable/internal/types"
	"github.com/andresmejia3/stable/internal/utils"
	"go.uber.org/zap"
)

// RaceRequest carries two card texts exactly as they were saved.
type RaceRequest struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	Seed   *uint64 `json:"seed,omitempty"`
	Record bool    `json:"record,omitempty"`
}

// RaceError is the 422 body. The inputs are echoed back so the client can keep them.
type RaceError struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
	A      string `json:"a"`
	B      string `json:"b"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"version": config.AppVersion,
	})
}

// loadImage parses the upload and decodes its image, answering 400 on failure.
func (s *Server) loadImage(w http.ResponseWriter, r *http.Request) (*image.NRGBA, bool) {
	if err := s.parseUpload(w, r); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	img, err := readImage(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return img, true
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	img, ok := s.loadImage(w, r)
	if !ok {
		return
	}
	t, err := s.parseTuningForm(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := card.EncodePNG(tuning.Adjust(img, t))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeFile(w, "image/png", "", out)
}

// exportCard builds the card from the form and renders both files.
func (s *Server) exportCard(w http.ResponseWriter, r *http.Request) (*card.Export, bool) {
	img, ok := s.loadImage(w, r)
	if !ok {
		return nil, false
	}
	c, err := s.parseCardForm(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	exp, err := card.Render(c, tuning.Adjust(img, c.Tuning))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}

	if register, _ := strconv.ParseBool(r.FormValue("register")); register {
		if s.store == nil {
			s.writeError(w, http.StatusServiceUnavailable, "registry not configured")
			return nil, false
		}
		id, err := s.store.SaveCard(r.Context(), c, utils.GenerateImageID(exp.Image), int64(len(exp.Image)))
		if err != nil {
			s.logger.Error("registering card", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to register card")
			return nil, false
		}
		w.Header().Set("X-Card-ID", strconv.Itoa(id))
	}
	return exp, true
}

func (s *Server) handleCardStats(w http.ResponseWriter, r *http.Request) {
	exp, ok := s.exportCard(w, r)
	if !ok {
		return
	}
	s.writeFile(w, "application/json", exp.StatsPath, exp.Stats)
}

func (s *Server) handleCardImage(w http.ResponseWriter, r *http.Request) {
	exp, ok := s.exportCard(w, r)
	if !ok {
		return
	}
	s.writeFile(w, "image/png", exp.ImagePath, exp.Image)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	img, ok := s.loadImage(w, r)
	if !ok {
		return
	}
	c, err := s.parseCardForm(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rendered, err := preview.Render(r.Context(), tuning.Adjust(img, c.Tuning), c, s.cfg.Preview.Width, s.cfg.Preview.Height)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out, err := card.EncodePNG(rendered)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeFile(w, "image/png", "", out)
}

func (s *Server) handleRace(w http.ResponseWriter, r *http.Request) {
	var req RaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON format: %v", err))
		return
	}

	scorer := race.New()
	if req.Seed != nil {
		scorer = race.NewSeeded(*req.Seed)
	}

	res, err := scorer.Race([]byte(req.A), []byte(req.B))
	if err != nil {
		if !errors.Is(err, card.ErrValidation) {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, RaceError{
			Error:  race.Message,
			Detail: err.Error(),
			A:      req.A,
			B:      req.B,
		})
		return
	}

	if req.Record {
		if s.store == nil {
			s.writeError(w, http.StatusServiceUnavailable, "registry not configured")
			return
		}
		// Names come from the already-validated texts.
		a, _ := card.Parse([]byte(req.A))
		b, _ := card.Parse([]byte(req.B))
		if _, err := s.store.RecordRace(r.Context(), a.Name, b.Name, res); err != nil {
			s.logger.Error("recording race", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to record race")
			return
		}
	}

	s.logger.Debug("race", zap.String("winner", res.Winner),
		zap.Float64("score_a", res.ScoreA), zap.Float64("score_b", res.ScoreB))
	s.writeJSON(w, http.StatusOK, res)
}

// FieldRequest names the horses of a field: card texts, registry cards, or both.
type FieldRequest struct {
	Cards    []string `json:"cards"`
	Registry bool     `json:"registry,omitempty"`
	Distance string   `json:"distance,omitempty"`
}

// FieldResponse lists the assignments in field order.
type FieldResponse struct {
	Distance strategy.Distance         `json:"distance"`
	Field    []strategy.Assignment     `json:"field"`
	Mix      map[strategy.Strategy]int `json:"mix"`
}

// FieldError is the 422 body when one of the card texts is unusable.
type FieldError struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
	Index  int    `json:"index"`
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	var req FieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON format: %v", err))
		return
	}
	d, err := strategy.ParseDistance(req.Distance)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cards := make([]types.StatCard, 0, len(req.Cards))
	for i, text := range req.Cards {
		c, err := card.Parse([]byte(text))
		if err != nil {
			s.writeJSON(w, http.StatusUnprocessableEntity, FieldError{
				Error:  race.Message,
				Detail: err.Error(),
				Index:  i,
			})
			return
		}
		cards = append(cards, c)
	}

	if req.Registry {
		if s.store == nil {
			s.writeError(w, http.StatusServiceUnavailable, "registry not configured")
			return
		}
		records, err := s.store.ListCards(r.Context())
		if err != nil {
			s.logger.Error("listing cards", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to list cards")
			return
		}
		for _, rec := range records {
			cards = append(cards, rec.Card)
		}
	}

	field, err := strategy.Assign(strategy.FromCards(cards), d)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, FieldResponse{Distance: d, Field: field, Mix: strategy.Mix(field)})
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "registry not configured")
		return
	}
	cards, err := s.store.ListCards(r.Context())
	if err != nil {
		s.logger.Error("listing cards", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list cards")
		return
	}
	if cards == nil {
		cards = []store.CardRecord{}
	}
	s.writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleListRaces(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "registry not configured")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	races, err := s.store.ListRaces(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing races", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list races")
		return
	}
	if races == nil {
		races = []store.RaceRecord{}
	}
	s.writeJSON(w, http.StatusOK, races)
}
