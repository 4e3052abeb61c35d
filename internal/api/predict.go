package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Skufu/MedPro/internal/diagnosis"
	"github.com/Skufu/MedPro/internal/features"
	"github.com/Skufu/MedPro/internal/store"
)

// predictRequest entries may be null; the selection form leaves unused
// slots empty or set to "None".
type predictRequest struct {
	Symptoms []*string `json:"symptoms"`
}

type candidate struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

type predictResponse struct {
	ID           string      `json:"id"`
	Disease      string      `json:"disease"`
	Confidence   float64     `json:"confidence"`
	Matched      []string    `json:"matched"`
	Ignored      []string    `json:"ignored,omitempty"`
	Differential []candidate `json:"differential,omitempty"`
}

func validationFailed(c *gin.Context, msg string, extra gin.H) {
	body := gin.H{"error": "validation_failed", "message": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusUnprocessableEntity, body)
}

func (s *server) predict(c *gin.Context) {
	raw, err := s.bindSymptoms(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	top := 0
	if v := c.Query("top"); v != "" {
		top, err = strconv.Atoi(v)
		if err != nil || top < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid top"})
			return
		}
	}

	selected := selectedSymptoms(raw)
	if len(selected) > s.MaxSymptoms {
		validationFailed(c, fmt.Sprintf("select at most %d symptoms", s.MaxSymptoms), nil)
		return
	}

	enc, err := s.encoder.Encode(selected)
	if errors.Is(err, features.ErrEmptySelection) {
		s.Logger.WithField("ignored", enc.Ignored).Debug("no recognized symptoms")
		validationFailed(c, "please select at least one symptom", gin.H{"ignored": enc.Ignored})
		return
	}
	if len(enc.Ignored) > 0 {
		s.Logger.WithField("ignored", enc.Ignored).Debug("ignoring unknown symptoms")
	}

	// One model serves the whole request even if a retrain lands meanwhile.
	model := s.Engine.Model()
	pred, err := diagnosis.Predict(enc.Vector, model)
	if errors.Is(err, diagnosis.ErrModelUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model_unavailable", "message": err.Error()})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction_failed"})
		return
	}

	resp := predictResponse{
		ID:         uuid.NewString(),
		Disease:    pred.Disease,
		Confidence: round2(pred.Confidence),
		Matched:    enc.Matched,
		Ignored:    enc.Ignored,
	}

	if top > 0 {
		ranked, err := diagnosis.Rank(enc.Vector, model, top)
		if err == nil {
			for _, r := range ranked {
				resp.Differential = append(resp.Differential, candidate{Disease: r.Disease, Confidence: round2(r.Confidence)})
			}
		}
	}

	s.record(c.Request.Context(), resp)
	c.JSON(http.StatusOK, resp)
}

// bindSymptoms accepts a JSON body or the form fields symptom1 through
// symptomN, N being MaxSymptoms. Missing form fields are skipped.
func (s *server) bindSymptoms(c *gin.Context) ([]*string, error) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req predictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, err
		}
		return req.Symptoms, nil
	}

	var out []*string
	for i := 1; i <= s.MaxSymptoms; i++ {
		v, ok := c.GetPostForm("symptom" + strconv.Itoa(i))
		if !ok {
			continue
		}
		out = append(out, &v)
	}
	return out, nil
}

func selectedSymptoms(raw []*string) []string {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p == nil {
			continue
		}
		v := strings.TrimSpace(*p)
		if v == "" || v == features.NoneSelected {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s *server) record(ctx context.Context, resp predictResponse) {
	if s.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	id, _ := uuid.Parse(resp.ID)
	err := s.History.Record(ctx, store.Entry{
		ID:         id,
		Symptoms:   resp.Matched,
		Disease:    resp.Disease,
		Confidence: resp.Confidence,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		s.Logger.WithError(err).Warn("failed to record prediction")
	}
}

func (s *server) recent(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, 100)
	}

	entries, err := s.History.Recent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history_unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": entries})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
