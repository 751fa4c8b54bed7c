package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smregler-server/internal/diagnosis"
	"github.com/smregler-server/internal/domain"
	"github.com/smregler-server/internal/middleware"
	"github.com/smregler-server/internal/rules"
)

// ChainDescription lists the rules of one chain.
type ChainDescription struct {
	Name  string            `json:"name"`
	Rules []domain.RuleInfo `json:"rules"`
}

// DiagnosisResponse is a code together with its equivalents in the other system.
type DiagnosisResponse struct {
	diagnosis.Code
	OID         string           `json:"oid"`
	Equivalents []diagnosis.Code `json:"equivalents"`
}

func (s *Server) handleIsAlive(c *gin.Context) {
	if s.state.Alive() {
		c.String(http.StatusOK, "I'm alive! :)")
		return
	}
	c.String(http.StatusInternalServerError, "I'm dead x_x")
}

func (s *Server) handleIsReady(c *gin.Context) {
	if s.state.Ready() {
		c.String(http.StatusOK, "I'm ready! :)")
		return
	}
	c.String(http.StatusInternalServerError, "Please wait! I'm not ready :(")
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if !s.state.Ready() {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"diagnosis_codes": gin.H{
			"icpc2": s.registry.Len(diagnosis.ICPC2),
			"icd10": s.registry.Len(diagnosis.ICD10),
		},
	})
}

// handleValidate runs all rule chains against one certificate
func (s *Server) handleValidate(c *gin.Context) {
	var req domain.ValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, domain.ErrInvalidInput, "Malformed validation request", err.Error())
		return
	}

	result, err := s.validator.Validate(c.Request.Context(), &req)
	if err != nil {
		apiErr := domain.APIErrorFrom(err)
		if apiErr.Code == domain.ErrInternalServer {
			_ = c.Error(err)
		}
		middleware.AbortWithAPIError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleListRules describes every chain in evaluation order
func (s *Server) handleListRules(c *gin.Context) {
	catalogs := s.validator.Catalogs()
	chains := make([]ChainDescription, 0, len(catalogs))
	for _, catalog := range catalogs {
		chains = append(chains, ChainDescription{Name: catalog.Name(), Rules: catalog.Infos()})
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// handleGetChain describes one chain, as JSON or with ?format=csv as the rule
// documentation file
func (s *Server) handleGetChain(c *gin.Context) {
	name := c.Param("chain")

	var catalog rules.Catalog
	for _, candidate := range s.validator.Catalogs() {
		if candidate.Name() == name {
			catalog = candidate
			break
		}
	}
	if catalog == nil {
		middleware.AbortWithError(c, domain.ErrCodeNotFound, "Unknown rule chain", name)
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Disposition", `attachment; filename="`+rules.DocumentationFileName(catalog)+`"`)
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := rules.WriteDocumentation(c.Writer, catalog); err != nil {
			_ = c.Error(err)
		}
		return
	}

	c.JSON(http.StatusOK, ChainDescription{Name: catalog.Name(), Rules: catalog.Infos()})
}

// handleGetDiagnosis looks up a code and its cross-references
func (s *Server) handleGetDiagnosis(c *gin.Context) {
	system, ok := diagnosis.ParseSystem(c.Param("system"))
	if !ok {
		middleware.AbortWithError(c, domain.ErrInvalidInput, "Unknown code system", c.Param("system"))
		return
	}

	code, found := s.registry.Lookup(system, c.Param("code"))
	if !found {
		middleware.AbortWithError(c, domain.ErrCodeNotFound, "Unknown diagnosis code", c.Param("code"))
		return
	}

	c.JSON(http.StatusOK, DiagnosisResponse{
		Code:        code,
		OID:         system.OID(),
		Equivalents: s.registry.CrossReference(code),
	})
}
