package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/application/review"
	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/workflow"
)

// Actor headers set by the upstream authentication layer
const (
	HeaderActorRole = "X-Actor-Role"
	HeaderActorID   = "X-Actor-Id"
	HeaderActorName = "X-Actor-Name"
)

// ClaimEngine is the command set served over HTTP
type ClaimEngine interface {
	Invite(ctx context.Context, req review.InviteRequest, actor claim.Actor) (*claim.Claim, error)
	Submit(ctx context.Context, req review.SubmitRequest, actor claim.Actor) (*claim.Claim, error)
	GetState(ctx context.Context, claimID string) (*claim.Claim, error)
	ListClaims(ctx context.Context, filter port.ClaimFilter) ([]*claim.Claim, error)
	AuditTrail(ctx context.Context, claimID string) ([]audit.Entry, error)
	VerifyAuditTrail(ctx context.Context, claimID string) error
	RecordView(ctx context.Context, claimID string, actor claim.Actor) error
	Allocate(ctx context.Context, claimID string, stage review.Stage, assignee string, actor claim.Actor) (*claim.Claim, error)

	Verify(ctx context.Context, claimID string, actor claim.Actor) (*claim.Claim, error)
	AcceptPlatformFigure(ctx context.Context, claimID string, actor claim.Actor) (*claim.Claim, error)
	CompleteVerification(ctx context.Context, claimID string, result review.VerificationResult, actor claim.Actor) (*claim.Claim, error)
	RequestPlatformFigure(ctx context.Context, claimID string, actor claim.Actor) error

	AcceptVerifierFigure(ctx context.Context, claimID string, actor claim.Actor) (*claim.Claim, error)
	ReadmitRecheck(ctx context.Context, claimID string, actor claim.Actor) (*claim.Claim, error)
	CompleteAdmission(ctx context.Context, claimID string, form review.AdmissionReview, actor claim.Actor) (*claim.Claim, error)

	CreateAssignmentRow(ctx context.Context, claimID string, actor claim.Actor) (*claim.Claim, string, error)
	SaveAssignee(ctx context.Context, claimID, rowID string, details claim.AssigneeDetails, actor claim.Actor) (*claim.Claim, error)
	DecideAssignment(ctx context.Context, claimID, rowID string, decision review.AssignmentDecision, actor claim.Actor) (*claim.Claim, error)
}

var _ ClaimEngine = (*review.Engine)(nil)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine ClaimEngine
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(engine ClaimEngine, logger Logger) *Handlers {
	return &Handlers{engine: engine, logger: logger}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// InviteBody is the body of POST /claims/invite
type InviteBody struct {
	ClaimantID        string         `json:"claimant_id"`
	ClaimantName      string         `json:"claimant_name"`
	Category          claim.Category `json:"category"`
	TwoStage          bool           `json:"two_stage"`
	AIAssistanceOpted bool           `json:"ai_assistance_opted"`
}

// SubmitBody is the body of POST /claims/submit
type SubmitBody struct {
	ClaimID           string              `json:"claim_id"`
	ClaimantID        string              `json:"claimant_id"`
	ClaimantName      string              `json:"claimant_name"`
	Category          claim.Category      `json:"category"`
	Principal         decimal.Decimal     `json:"principal"`
	Interest          decimal.Decimal     `json:"interest"`
	Documents         []claim.DocumentRef `json:"documents"`
	TwoStage          bool                `json:"two_stage"`
	AIAssistanceOpted bool                `json:"ai_assistance_opted"`
}

// AllocateBody is the body of POST /claims/:id/allocate. An empty assignee
// removes the allocation.
type AllocateBody struct {
	Stage    review.Stage `json:"stage"`
	Assignee string       `json:"assignee"`
}

// VerificationBody is the body of POST /claims/:id/verification/complete
type VerificationBody struct {
	Amount  decimal.NullDecimal `json:"amount"`
	Remarks string              `json:"remarks"`
}

// AdmissionBody is the body of POST /claims/:id/admission/complete
type AdmissionBody struct {
	Breakdown claim.Breakdown     `json:"breakdown"`
	Amount    decimal.NullDecimal `json:"amount"`
	Remarks   string              `json:"remarks"`
	Finalize  bool                `json:"finalize"`
}

// DecisionBody is the body of POST /claims/:id/assignments/:row/decision
type DecisionBody struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

// AssignmentRowResponse is returned when a row is created
type AssignmentRowResponse struct {
	RowID string       `json:"row_id"`
	Claim *claim.Claim `json:"claim"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ListClaims handles GET /api/v1/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	claims, err := h.engine.ListClaims(c.Request.Context(), port.ClaimFilter{
		Status:     workflow.State(strings.ToUpper(c.Query("status"))),
		ClaimantID: c.Query("claimant_id"),
		Limit:      limit,
		Offset:     offset,
	})
	h.respond(c, http.StatusOK, claims, err)
}

// Invite handles POST /api/v1/claims/invite
func (h *Handlers) Invite(c *gin.Context) {
	var body InviteBody
	if !h.bind(c, &body) {
		return
	}
	out, err := h.engine.Invite(c.Request.Context(), review.InviteRequest{
		Claimant: claim.Claimant{ID: body.ClaimantID, Name: body.ClaimantName},
		Category: body.Category,
		Terms:    claim.Terms{TwoStage: body.TwoStage, AIAssistanceOpted: body.AIAssistanceOpted},
	}, actorFrom(c))
	h.respond(c, http.StatusCreated, out, err)
}

// Submit handles POST /api/v1/claims/submit
func (h *Handlers) Submit(c *gin.Context) {
	var body SubmitBody
	if !h.bind(c, &body) {
		return
	}
	out, err := h.engine.Submit(c.Request.Context(), review.SubmitRequest{
		ClaimID:   body.ClaimID,
		Claimant:  claim.Claimant{ID: body.ClaimantID, Name: body.ClaimantName},
		Category:  body.Category,
		Principal: body.Principal,
		Interest:  body.Interest,
		Documents: body.Documents,
		Terms:     claim.Terms{TwoStage: body.TwoStage, AIAssistanceOpted: body.AIAssistanceOpted},
	}, actorFrom(c))
	status := http.StatusOK
	if body.ClaimID == "" {
		status = http.StatusCreated
	}
	h.respond(c, status, out, err)
}

// GetClaim handles GET /api/v1/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	out, err := h.engine.GetState(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, out, err)
}

// GetAuditTrail handles GET /api/v1/claims/:id/audit
func (h *Handlers) GetAuditTrail(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.engine.GetState(c.Request.Context(), id); err != nil {
		h.respond(c, http.StatusOK, nil, err)
		return
	}
	trail, err := h.engine.AuditTrail(c.Request.Context(), id)
	h.respond(c, http.StatusOK, trail, err)
}

// VerifyAuditTrail handles GET /api/v1/claims/:id/audit/verify
func (h *Handlers) VerifyAuditTrail(c *gin.Context) {
	err := h.engine.VerifyAuditTrail(c.Request.Context(), c.Param("id"))
	if errors.Is(err, audit.ErrChainBroken) {
		c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"intact": false, "detail": err.Error()}})
		return
	}
	h.respond(c, http.StatusOK, gin.H{"intact": true}, err)
}

// RecordView handles POST /api/v1/claims/:id/view
func (h *Handlers) RecordView(c *gin.Context) {
	err := h.engine.RecordView(c.Request.Context(), c.Param("id"), actorFrom(c))
	h.respond(c, http.StatusNoContent, nil, err)
}

// Allocate handles POST /api/v1/claims/:id/allocate
func (h *Handlers) Allocate(c *gin.Context) {
	var body AllocateBody
	if !h.bind(c, &body) {
		return
	}
	stage := review.Stage(strings.ToUpper(string(body.Stage)))
	out, err := h.engine.Allocate(c.Request.Context(), c.Param("id"), stage, body.Assignee, actorFrom(c))
	h.respond(c, http.StatusOK, out, err)
}

// Verify handles POST /api/v1/claims/:id/verification/verify
func (h *Handlers) Verify(c *gin.Context) {
	out, err := h.engine.Verify(c.Request.Context(), c.Param("id"), actorFrom(c))
	h.respond(c, http.StatusOK, out, err)
}

// AcceptPlatformFigure handles POST /api/v1/claims/:id/verification/accept-platform
func (h *Handlers) AcceptPlatformFigure(c *gin.Context) {
	out, err := h.engine.AcceptPlatformFigure(c.Request.Context(), c.Param("id"), actorFrom(c))
	h.respond(c, http.StatusOK, out, err)
}

// CompleteVerification handles POST /api/v1/claims/:id/verification/complete
func (h *Handlers) CompleteVerification(c *gin.Context) {
	var body VerificationBody
	if !h.bind(c, &body) {
		return
	}
	out, err := h.engine.CompleteVerification(c.Request.Context(), c.Param("id"),
		review.VerificationResult{Amount: body.Amount, Remarks: body.Remarks}, actorFrom(c))
	h.respond(c, http.StatusOK, out, err)
}

// RequestPlatformFigure handles POST /api/v1/claims/:id/verification/suggest.
// The suggestion is computed in the background.
func (h *Handlers) RequestPlatformFigure(c *gin.Context) {
	err := h.engine.RequestPlatformFigure(c.Request.Context(), c.Param("id"), actorFrom(c))
	h.respond(c, http.StatusAccepted, nil, err)
}

// AcceptVerifierFigure handles POST /api/v1/claims/:id/admission/accept-verifier
func (h *Handlers) AcceptVerifierFigure(c *gin.Context) {
	out, err := h.engine.AcceptVerifierFigure(c.Request.Context(), c.Param("id"), actorFrom(c))
	h.respond(c, http.StatusOK, out, err)
}

// ReadmitRecheck handles POST /api/v1/claims/:id/admission/recheck
func (h *Handlers) ReadmitRecheck(c *gin.Context) {
	out, err := h.engine.ReadmitRecheck(c.Request.Context(), c.Param("id"), actorFrom(c))
	h.respond(c, http.StatusOK, out, err)
}

// CompleteAdmission handles POST /api/v1/claims/:id/admission/complete
func (h *Handlers) CompleteAdmission(c *gin.Context) {
	var body AdmissionBody
	if !h.bind(c, &body) {
		return
	}
	out, err := h.engine.CompleteAdmission(c.Request.Context(), c.Param("id"), review.AdmissionReview{
		Breakdown: body.Breakdown,
		Amount:    body.Amount,
		Remarks:   body.Remarks,
		Finalize:  body.Finalize,
	}, actorFrom(c))
	h.respond(c, http.StatusOK, out, err)
}

// CreateAssignmentRow handles POST /api/v1/claims/:id/assignments
func (h *Handlers) CreateAssignmentRow(c *gin.Context) {
	out, rowID, err := h.engine.CreateAssignmentRow(c.Request.Context(), c.Param("id"), actorFrom(c))
	h.respond(c, http.StatusCreated, AssignmentRowResponse{RowID: rowID, Claim: out}, err)
}

// SaveAssignee handles PUT /api/v1/claims/:id/assignments/:row
func (h *Handlers) SaveAssignee(c *gin.Context) {
	var body claim.AssigneeDetails
	if !h.bind(c, &body) {
		return
	}
	out, err := h.engine.SaveAssignee(c.Request.Context(), c.Param("id"), c.Param("row"), body, actorFrom(c))
	h.respond(c, http.StatusOK, out, err)
}

// DecideAssignment handles POST /api/v1/claims/:id/assignments/:row/decision
func (h *Handlers) DecideAssignment(c *gin.Context) {
	var body DecisionBody
	if !h.bind(c, &body) {
		return
	}
	out, err := h.engine.DecideAssignment(c.Request.Context(), c.Param("id"), c.Param("row"),
		review.AssignmentDecision{Accepted: body.Accepted, Reason: body.Reason}, actorFrom(c))
	h.respond(c, http.StatusOK, out, err)
}

// actorFrom reads the caller identity. Role values are case-insensitive.
func actorFrom(c *gin.Context) claim.Actor {
	return claim.Actor{
		Role: claim.Role(strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderActorRole)))),
		ID:   strings.TrimSpace(c.GetHeader(HeaderActorID)),
		Name: strings.TrimSpace(c.GetHeader(HeaderActorName)),
	}
}

func (h *Handlers) bind(c *gin.Context, body interface{}) bool {
	if err := c.ShouldBindJSON(body); err != nil {
		h.logger.Error("Invalid request body", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
			Kind:    "validation",
		})
		return false
	}
	return true
}

func (h *Handlers) respond(c *gin.Context, status int, data interface{}, err error) {
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error("Request failed", "path", c.FullPath(), "claim_id", c.Param("id"), "error", err)
		}
		c.JSON(code, Response{Success: false, Error: err.Error(), Kind: claim.Kind(err)})
		return
	}
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	c.JSON(status, Response{Success: true, Data: data})
}

// statusFor maps an engine error kind to an HTTP status
func statusFor(err error) int {
	switch claim.Kind(err) {
	case "validation", "account_mismatch":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "no_platform_figure", "no_verifier_amount":
		return http.StatusUnprocessableEntity
	case "advisor_unavailable":
		return http.StatusServiceUnavailable
	case "precondition", "concurrent_update":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
