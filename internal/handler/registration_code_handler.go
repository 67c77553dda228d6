package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/service"
)

// RegistrationCodeHandler serves the public validate/use contract. Responses are
// plain JSON rather than the response envelope.
type RegistrationCodeHandler struct {
	codeService service.RegistrationCodeService
	logger      *zap.Logger
}

func NewRegistrationCodeHandler(codeService service.RegistrationCodeService, logger *zap.Logger) *RegistrationCodeHandler {
	return &RegistrationCodeHandler{codeService: codeService, logger: logger}
}

type ValidateCodeRequest struct {
	Code    string `json:"code" binding:"required"`
	Program string `json:"program"`
}

type ValidateCodeResponse struct {
	Valid bool                    `json:"valid"`
	Error string                  `json:"error,omitempty"`
	Code  *model.RegistrationCode `json:"code,omitempty"`
}

type UseCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

type UseCodeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// codeError maps ledger errors to a status and a short reason.
func codeError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrCodeNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrCodeUsed):
		return http.StatusBadRequest, "already used"
	case errors.Is(err, service.ErrCodeExpired):
		return http.StatusBadRequest, "expired"
	case errors.Is(err, service.ErrProgramMismatch):
		return http.StatusBadRequest, "program mismatch"
	case errors.Is(err, service.ErrCodeInvalid):
		return http.StatusBadRequest, "invalid"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *RegistrationCodeHandler) Validate(c *gin.Context) {
	var req ValidateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ValidateCodeResponse{Error: "code is required"})
		return
	}

	var program model.Program
	if req.Program != "" {
		p, ok := model.ParseProgram(req.Program)
		if !ok {
			c.JSON(http.StatusBadRequest, ValidateCodeResponse{Error: "unknown program"})
			return
		}
		program = p
	}

	rc, err := h.codeService.Validate(c.Request.Context(), req.Code, program)
	if err != nil {
		status, reason := codeError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("validate registration code", zap.Error(err))
		}
		c.JSON(status, ValidateCodeResponse{Error: reason})
		return
	}
	c.JSON(http.StatusOK, ValidateCodeResponse{Valid: true, Code: rc})
}

func (h *RegistrationCodeHandler) Use(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, UseCodeResponse{Message: "authentication required"})
		return
	}

	var req UseCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, UseCodeResponse{Message: "code is required"})
		return
	}

	if _, err := h.codeService.Consume(c.Request.Context(), req.Code, userID); err != nil {
		status, reason := codeError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("consume registration code", zap.Error(err))
		}
		c.JSON(status, UseCodeResponse{Message: reason})
		return
	}
	c.JSON(http.StatusOK, UseCodeResponse{Success: true, Message: "registration code used successfully"})
}
