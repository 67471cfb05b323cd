package http

import (
	"errors"
	"net/http"
	"strings"

	"trustmark/internal/domain"

	"github.com/gin-gonic/gin"
)

const idempotencyKeyHeader = "Idempotency-Key"

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createURLProofRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleCreateURLProof(c *gin.Context) {
	if !s.enforceRateLimit(c, "proofs:url") {
		return
	}
	var req createURLProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}

	idemKey := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	resp, err := s.proofs.CreateFromURL(c.Request.Context(), req.URL, idemKey)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if resp.Deduped {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (s *Server) handleCreateFileProof(c *gin.Context) {
	if !s.enforceRateLimit(c, "proofs:file") {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "MISSING_FILE", "multipart field 'file' is required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file")
		return
	}
	defer f.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := s.proofs.CreateFromFile(c.Request.Context(), f, fileHeader.Filename, contentType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleVerifyTrustmark(c *gin.Context) {
	if !s.enforceRateLimit(c, "verify:read") {
		return
	}
	view, err := s.proofs.VerifyByTrustmark(c.Request.Context(), c.Param("trustmark_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleVerificationStatus(c *gin.Context) {
	if s.verifier == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	status, err := s.verifier.Status(c.Param("run_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"

	var downloadErr *domain.DownloadError
	var tooLarge *domain.TooLargeError
	var timeoutErr *domain.TimeoutError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &tooLarge):
		status, code = http.StatusRequestEntityTooLarge, "MEDIA_TOO_LARGE"
	case errors.As(err, &downloadErr):
		status, code = http.StatusBadGateway, "DOWNLOAD_FAILED"
	case errors.As(err, &timeoutErr):
		status, code = http.StatusGatewayTimeout, "TIMEOUT"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
