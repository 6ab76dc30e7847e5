package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"summary-backend/internal/shared/server/respond"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Configurer reports whether a generation backend has credentials.
type Configurer interface {
	Configured() bool
}

// Status is the health payload. Database is "ok", "down" or "memory".
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	LLM      bool   `json:"llm"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB  Pinger
	LLM Configurer
}

// NewService constructs a new health service. A nil db means the process runs
// on in-memory repositories.
func NewService(db Pinger, llm Configurer) *Service {
	return &Service{DB: db, LLM: llm}
}

// Status checks the database and reports whether any provider is configured.
// The process is OK when the database answers; the LLM flag is informational.
func (s *Service) Status(ctx context.Context) Status {
	out := Status{OK: true, Database: "memory"}
	if s.LLM != nil {
		out.LLM = s.LLM.Configured()
	}
	if s.DB == nil {
		return out
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		out.OK = false
		out.Database = "down"
		return out
	}
	out.Database = "ok"
	return out
}

// Handle serves GET /health.
func (s *Service) Handle(c *gin.Context) {
	st := s.Status(c.Request.Context())
	code := http.StatusOK
	if !st.OK {
		code = http.StatusServiceUnavailable
	}
	respond.JSON(c, code, st)
}
