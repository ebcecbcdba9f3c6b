package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/service"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// CasesHandler serves one case kind; the same handler type backs both
// the /tickets and /incidents groups.
type CasesHandler struct {
	kind        domain.CaseKind
	workflow    *service.WorkflowService
	query       *service.QueryService
	attachments *service.AttachmentService
}

// NewCasesHandler constructs a handler bound to a kind.
func NewCasesHandler(kind domain.CaseKind, workflow *service.WorkflowService, query *service.QueryService, attachments *service.AttachmentService) *CasesHandler {
	return &CasesHandler{kind: kind, workflow: workflow, query: query, attachments: attachments}
}

// List GET /{kind}.
func (h *CasesHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	result, err := h.query.List(c.UserContext(), actor, h.kind, parseListParams(c, false))
	if err != nil {
		return err
	}
	return c.JSON(listResponse(result))
}

// ListMine GET /my/{kind}.
func (h *CasesHandler) ListMine(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	result, err := h.query.List(c.UserContext(), actor, h.kind, parseListParams(c, true))
	if err != nil {
		return err
	}
	return c.JSON(listResponse(result))
}

// Get GET /{kind}/:id.
func (h *CasesHandler) Get(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.query.Get(c.UserContext(), actor, h.kind, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseDetail(detail)})
}

// Export GET /{kind}/export.
func (h *CasesHandler) Export(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s-export.csv", h.kind))
	return h.query.Export(c.UserContext(), actor, h.kind, parseListParams(c, false), c.Response().BodyWriter())
}

// Create POST /{kind}.
func (h *CasesHandler) Create(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.CreateCaseInput{
		TypeID:        req.TypeID,
		SeverityID:    req.SeverityID,
		SiteID:        req.SiteID,
		SubLocationID: req.SubLocationID,
		DueAt:         req.DueAt,
		Subject:       req.Subject,
		Description:   req.Description,
	}
	if req.AreaID != nil {
		input.AreaID = *req.AreaID
	}
	created, err := h.workflow.Create(c.UserContext(), actor, h.kind, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.summary(actor, created)})
}

// Update PATCH /{kind}/:id.
func (h *CasesHandler) Update(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.UpdateStateInput{
		StatusID:   req.StatusID,
		SeverityID: req.SeverityID,
		AreaID:     req.AreaID,
		Internal:   req.Internal,
	}
	if req.Note != nil {
		input.Note = *req.Note
	}
	updated, err := h.workflow.UpdateState(c.UserContext(), actor, h.kind, id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(actor, updated)})
}

// Take POST /{kind}/:id/take.
func (h *CasesHandler) Take(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	taken, err := h.workflow.Take(c.UserContext(), actor, h.kind, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(actor, taken)})
}

// Assign POST /{kind}/:id/assign.
func (h *CasesHandler) Assign(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	assigned, err := h.workflow.Assign(c.UserContext(), actor, h.kind, id, req.AssignedUserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(actor, assigned)})
}

// Unassign POST /{kind}/:id/unassign.
func (h *CasesHandler) Unassign(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	released, err := h.workflow.Unassign(c.UserContext(), actor, h.kind, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(actor, released)})
}

// Escalate POST /{kind}/:id/escalate.
func (h *CasesHandler) Escalate(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	escalated, err := h.workflow.Escalate(c.UserContext(), actor, h.kind, id, req.AreaID, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.summary(actor, escalated)})
}

// Comment POST /{kind}/:id/comments.
func (h *CasesHandler) Comment(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	entry, err := h.workflow.Comment(c.UserContext(), actor, h.kind, id, req.Body, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": historyEntry(entry)})
}

// UploadAttachment POST /{kind}/:id/attachments.
func (h *CasesHandler) UploadAttachment(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field 'file' required", nil)
	}
	f, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer f.Close()

	attachment, err := h.attachments.Upload(c.UserContext(), actor, h.kind, id,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size, f)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(attachment)})
}

// DownloadAttachment GET /{kind}/:id/attachments/:attachmentID.
func (h *CasesHandler) DownloadAttachment(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	attachmentID, err := pathID(c, "attachmentID")
	if err != nil {
		return err
	}
	attachment, reader, err := h.attachments.Download(c.UserContext(), actor, h.kind, id, attachmentID)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, attachment.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	return c.SendStream(reader, int(attachment.SizeBytes))
}

// DeleteAttachment DELETE /{kind}/:id/attachments/:attachmentID.
func (h *CasesHandler) DeleteAttachment(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	attachmentID, err := pathID(c, "attachmentID")
	if err != nil {
		return err
	}
	if err := h.attachments.Delete(c.UserContext(), actor, h.kind, id, attachmentID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *CasesHandler) summary(actor *domain.User, c *domain.Case) dto.CaseSummary {
	view := service.CaseView{Case: *c, Abilities: h.query.Abilities(actor, c)}
	return caseSummary(&view)
}

func principal(c *fiber.Ctx) (*domain.User, error) {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid identifier", map[string]any{"param": name})
	}
	return id, nil
}

func parseListParams(c *fiber.Ctx, mine bool) service.ListParams {
	params := service.ListParams{
		Search:   strings.TrimSpace(c.Query("search")),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
		Page:     queryInt(c, "page", 1),
		PerPage:  queryInt(c, "per_page", 0),
		Mine:     mine,
	}
	params.AreaID = queryID(c, "area_id")
	params.SiteID = queryID(c, "site_id")
	params.TypeID = queryID(c, "type_id")
	params.SeverityID = queryID(c, "severity_id")
	params.StatusID = queryID(c, "status_id")

	switch assigned := c.Query("assigned_to"); assigned {
	case "me", "unassigned":
		params.AssignedTo = assigned
	default:
		if id, err := strconv.ParseInt(assigned, 10, 64); err == nil && id > 0 {
			params.AssignedUserID = &id
		}
	}
	if params.AssignedUserID == nil {
		params.AssignedUserID = queryID(c, "assigned_user_id")
	}
	return params
}

func queryInt(c *fiber.Ctx, name string, def int) int {
	parsed, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return parsed
}

func queryID(c *fiber.Ctx, name string) *int64 {
	parsed, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || parsed <= 0 {
		return nil
	}
	return &parsed
}

func listResponse(result *service.CaseList) fiber.Map {
	items := make([]dto.CaseSummary, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, caseSummary(&result.Items[i]))
	}
	return fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Total: result.Total, Page: result.Page, PerPage: result.PerPage},
	}
}

func caseSummary(view *service.CaseView) dto.CaseSummary {
	c := &view.Case
	return dto.CaseSummary{
		ID:             c.ID,
		Kind:           c.Kind,
		TypeID:         c.TypeID,
		SeverityID:     c.SeverityID,
		StatusID:       c.StatusID,
		AreaCurrentID:  c.AreaCurrentID,
		SiteID:         c.SiteID,
		SubLocationID:  c.SubLocationID,
		RequesterID:    c.RequesterID,
		AssignedUserID: c.AssignedUserID,
		Subject:        c.Subject,
		DueAt:          c.DueAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		ClosedAt:       c.ClosedAt,
		Abilities:      view.Abilities,
	}
}

func caseDetail(detail *service.CaseDetail) dto.CaseDetailResponse {
	history := make([]dto.HistoryEntryResponse, 0, len(detail.History))
	for i := range detail.History {
		history = append(history, historyEntry(&detail.History[i]))
	}
	attachments := make([]dto.AttachmentResponse, 0, len(detail.Attachments))
	for i := range detail.Attachments {
		attachments = append(attachments, attachmentResponse(&detail.Attachments[i]))
	}
	return dto.CaseDetailResponse{
		CaseSummary:  caseSummary(&detail.CaseView),
		AreaOriginID: detail.Case.AreaOriginID,
		Description:  detail.Case.Description,
		AssignedAt:   detail.Case.AssignedAt,
		History:      history,
		Attachments:  attachments,
	}
}

func historyEntry(entry *domain.HistoryEntry) dto.HistoryEntryResponse {
	return dto.HistoryEntryResponse{
		ID:             entry.ID,
		Action:         entry.Action,
		ActorID:        entry.ActorID,
		FromStatusID:   entry.FromStatusID,
		ToStatusID:     entry.ToStatusID,
		FromSeverityID: entry.FromSeverityID,
		ToSeverityID:   entry.ToSeverityID,
		FromAreaID:     entry.FromAreaID,
		ToAreaID:       entry.ToAreaID,
		FromAssigneeID: entry.FromAssigneeID,
		ToAssigneeID:   entry.ToAssigneeID,
		Note:           entry.Note,
		Internal:       entry.Internal,
		CreatedAt:      entry.CreatedAt,
	}
}

func attachmentResponse(attachment *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:         attachment.ID,
		UploaderID: attachment.UploaderID,
		FileName:   attachment.FileName,
		MimeType:   attachment.MimeType,
		SizeBytes:  attachment.SizeBytes,
		CreatedAt:  attachment.CreatedAt,
	}
}
