package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/service"
	"nclexkeys/backend/pkg/response"
)

type AdminHandler struct {
	codeService    service.RegistrationCodeService
	paymentService service.PaymentService
}

func NewAdminHandler(codeService service.RegistrationCodeService, paymentService service.PaymentService) *AdminHandler {
	return &AdminHandler{
		codeService:    codeService,
		paymentService: paymentService,
	}
}

type CreateCodesRequest struct {
	Program       string `json:"program" binding:"required"`
	Count         int    `json:"count"`
	ExpiresInDays int    `json:"expires_in_days"`
	Notes         string `json:"notes"`
}

type ExpireCodesRequest struct {
	Codes []string `json:"codes" binding:"required"`
}

type SendCodeRequest struct {
	Email string `json:"email" binding:"required"`
}

// CreateCodes generates a batch of codes priced from the program table.
func (h *AdminHandler) CreateCodes(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var req CreateCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	program, ok := model.ParseProgram(req.Program)
	if !ok {
		response.BadRequest(c, "invalid program type")
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}

	codes, err := h.codeService.CreateBatch(c.Request.Context(), service.CreateBatchInput{
		Program:       program,
		Count:         req.Count,
		CreatedBy:     &userID,
		ExpiresInDays: req.ExpiresInDays,
		Notes:         req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchTooLarge),
			errors.Is(err, service.ErrInvalidInput),
			errors.Is(err, service.ErrUnknownProgram):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, "failed to create registration codes")
		}
		return
	}

	response.Created(c, codes)
}

// ListCodes supports ?program=&status=active|used|expired&page=&page_size=.
func (h *AdminHandler) ListCodes(c *gin.Context) {
	var q service.CodeListQuery
	if raw := c.Query("program"); raw != "" {
		program, ok := model.ParseProgram(raw)
		if !ok {
			response.BadRequest(c, "invalid program type")
			return
		}
		q.Program = program
	}
	switch status := model.CodeStatus(c.Query("status")); status {
	case "", model.CodeStatusActive, model.CodeStatusUsed, model.CodeStatusExpired:
		q.Status = status
	default:
		response.BadRequest(c, "invalid status")
		return
	}
	q.Page = queryInt(c, "page", 1)
	q.PageSize = queryInt(c, "page_size", 0)

	list, err := h.codeService.List(c.Request.Context(), q)
	if err != nil {
		response.InternalError(c, "failed to list registration codes")
		return
	}

	response.Success(c, list)
}

func (h *AdminHandler) GetCode(c *gin.Context) {
	rc, err := h.codeService.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			response.NotFound(c, "registration code not found")
			return
		}
		response.InternalError(c, "failed to load registration code")
		return
	}

	response.Success(c, rc)
}

func (h *AdminHandler) ExpireCodes(c *gin.Context) {
	var req ExpireCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	n, err := h.codeService.Expire(c.Request.Context(), req.Codes)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, "failed to expire registration codes")
		return
	}

	response.Success(c, gin.H{"expired": n})
}

func (h *AdminHandler) SendCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.codeService.Send(c.Request.Context(), c.Param("code"), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			response.NotFound(c, "registration code not found")
		case errors.Is(err, service.ErrCodeInvalid):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, "failed to send registration code")
		}
		return
	}

	response.Success(c, nil)
}

func (h *AdminHandler) PaymentsOverview(c *gin.Context) {
	overview, err := h.paymentService.Overview(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to load payments overview")
		return
	}

	response.Success(c, overview)
}
