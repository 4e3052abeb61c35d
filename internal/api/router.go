package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Skufu/MedPro/internal/diagnosis"
	"github.com/Skufu/MedPro/internal/features"
	"github.com/Skufu/MedPro/internal/logging"
	"github.com/Skufu/MedPro/internal/store"
	"github.com/Skufu/MedPro/internal/taxonomy"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// History records and lists past predictions.
type History interface {
	Record(ctx context.Context, e store.Entry) error
	Recent(ctx context.Context, limit int) ([]store.Entry, error)
}

// Retrainer trains a fresh model from the configured table.
type Retrainer func() (*diagnosis.Model, error)

// Options wires the router. Registry and Engine are required; DB, History
// and Retrain are optional and their routes degrade or disappear when nil.
type Options struct {
	Registry    *taxonomy.Registry
	Engine      *diagnosis.Engine
	DB          HealthChecker
	History     History
	Retrain     Retrainer
	AdminToken  string
	MaxSymptoms int
	Logger      logrus.FieldLogger
}

type server struct {
	Options
	encoder *features.Encoder
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.MaxSymptoms < 1 {
		opts.MaxSymptoms = 5
	}
	s := &server{Options: opts, encoder: features.NewEncoder(opts.Registry)}

	router := gin.New()
	router.Use(
		logging.Middleware(opts.Logger),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization", adminTokenHeader},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", s.ready)

	api := router.Group("/api")
	api.GET("/symptoms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"symptoms": s.Registry.Symptoms(), "maxSelected": s.MaxSymptoms})
	})
	api.GET("/diseases", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"diseases": s.Registry.Diseases()})
	})
	api.POST("/predict", s.predict)

	if s.History != nil {
		api.GET("/predictions", s.recent)
	}
	if s.Retrain != nil && s.AdminToken != "" {
		api.POST("/admin/retrain", s.requireAdmin, s.retrain)
	}

	return router
}

func (s *server) ready(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}

	if m := s.Engine.Model(); m != nil {
		body["model"] = m.Summary()
	} else {
		status = http.StatusServiceUnavailable
		body["model"] = "unavailable"
	}

	if s.DB == nil {
		body["db"] = "disabled"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.DB.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["db"] = "unhealthy: " + err.Error()
		} else {
			body["db"] = "ok"
		}
	}

	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

const adminTokenHeader = "X-Admin-Token"

func (s *server) requireAdmin(c *gin.Context) {
	got := c.GetHeader(adminTokenHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.AdminToken)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *server) retrain(c *gin.Context) {
	m, err := s.Retrain()
	if err != nil {
		s.Logger.WithError(err).Warn("retrain failed, keeping current model")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retrain_failed", "message": err.Error()})
		return
	}
	s.Engine.Install(m)
	s.Logger.WithField("records", m.Summary().Records).Info("model retrained")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": m.Summary()})
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
