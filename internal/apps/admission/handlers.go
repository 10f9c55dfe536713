package admission

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/formseva/formseva-backend/internal/dto"
	"github.com/formseva/formseva-backend/internal/middleware"
	"github.com/formseva/formseva-backend/internal/services"
)

const maxUploadBytes = 10 * 1024 * 1024

var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/pdf": true,
}

type Handler struct {
	service  *Service
	payments *PaymentService
	pdfs     *PDFService
	ai       *services.AIService
}

func NewHandler(service *Service, payments *PaymentService, pdfs *PDFService, ai *services.AIService) *Handler {
	return &Handler{service: service, payments: payments, pdfs: pdfs, ai: ai}
}

func (h *Handler) GetApplication(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	app, err := h.service.Current(c.Context(), userID)
	if err != nil {
		return internalError(c, "Failed to load application")
	}
	if app == nil {
		return c.JSON(fiber.Map{"application": nil})
	}
	return c.JSON(fiber.Map{"application": View(app)})
}

func (h *Handler) SaveStep(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	step, err := strconv.Atoi(c.Params("stepNumber"))
	if err != nil {
		return badRequest(c, "Invalid step number")
	}

	var body map[string]interface{}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}

	currentStep, stepData, err := h.service.SaveStep(c.Context(), userID, step, body)
	if err != nil {
		if errors.Is(err, ErrInvalidStep) {
			return badRequest(c, err.Error())
		}
		return internalError(c, "Failed to save step")
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"stepData":    stepData,
		"currentStep": currentStep,
	})
}

func (h *Handler) SavePreferences(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req struct {
		Preferences []PreferenceInput `json:"preferences"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.service.ReplacePreferences(c.Context(), userID, req.Preferences); err != nil {
		if errors.Is(err, ErrPreferencesRequired) {
			return badRequest(c, err.Error())
		}
		if errors.Is(err, ErrApplicationNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c, "Failed to save preferences")
	}

	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *Handler) Submit(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	app, err := h.service.Submit(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrApplicationNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, ErrAlreadySubmitted), errors.Is(err, ErrPaymentRequired):
			return badRequest(c, err.Error())
		}
		return internalError(c, "Failed to submit application")
	}

	return c.JSON(fiber.Map{"success": true, "application": app})
}

func (h *Handler) UploadDocument(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}
	docType := c.FormValue("type")
	if docType == "" {
		return badRequest(c, "Document type required")
	}
	if file.Size > maxUploadBytes {
		return badRequest(c, "File exceeds 10MB limit")
	}
	mimeType := file.Header.Get("Content-Type")
	if !allowedUploadTypes[mimeType] {
		return badRequest(c, "Invalid file type. Only JPEG, PNG, and PDF are allowed.")
	}

	data, err := readMultipartFile(file)
	if err != nil {
		return internalError(c, "Failed to read uploaded file")
	}

	doc, err := h.service.UploadDocument(c.Context(), userID, docType, file.Filename, mimeType, data)
	if err != nil {
		return internalError(c, "Failed to upload document")
	}

	return c.JSON(fiber.Map{"success": true, "document": doc})
}

func (h *Handler) ListDocuments(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	docs, err := h.service.ListDocuments(c.Context(), userID)
	if err != nil {
		return internalError(c, "Failed to list documents")
	}
	return c.JSON(fiber.Map{"documents": docs})
}

func (h *Handler) DeleteDocument(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid document id")
	}

	if err := h.service.DeleteDocument(c.Context(), userID, id); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return notFound(c, err.Error())
		}
		if errors.Is(err, ErrNotOwner) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		return internalError(c, "Failed to delete document")
	}

	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *Handler) GeneratePDF(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	pdf, err := h.pdfs.Generate(c.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrPDFNotReady) {
			return notFound(c, err.Error())
		}
		return internalError(c, "Failed to generate PDF")
	}

	return c.JSON(fiber.Map{"success": true, "pdf": pdf})
}

func (h *Handler) GetPDF(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	pdf, stream, err := h.pdfs.GetOrRender(c.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrPDFNotFound) || errors.Is(err, ErrPDFNotReady) {
			return notFound(c, err.Error())
		}
		return internalError(c, "Failed to load PDF")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+pdf.FileName+`"`)
	return c.SendStream(stream)
}

// Chat forwards an applicant's question to the assistant, along with what
// they have filled in so far.
func (h *Handler) Chat(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Message == "" {
		return badRequest(c, "Message required")
	}

	var stepData map[string]interface{}
	if app, err := h.service.Current(c.Context(), userID); err == nil && app != nil {
		stepData = HydrateStepData(app.StepData)
	}

	answer, err := h.ai.AdmissionChat(c.Context(), req.Message, req.CurrentStep, stepData)
	if err != nil {
		if errors.Is(err, services.ErrAIUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error: true, Message: "Assistant is not available",
			})
		}
		return internalError(c, "Assistant request failed")
	}

	return c.JSON(dto.ChatResponse{Success: true, Response: answer})
}

func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	orderID, err := h.payments.CreateOrder(c.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrApplicationNotFound) {
			return notFound(c, err.Error())
		}
		if errors.Is(err, ErrAlreadyPaid) {
			return badRequest(c, err.Error())
		}
		return internalError(c, "Failed to create payment order")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"orderId": orderID,
		"amount":  h.payments.Amount(),
		"key":     h.payments.KeyID(),
	})
}

func (h *Handler) VerifyPayment(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req struct {
		OrderID   string `json:"orderId"`
		PaymentID string `json:"paymentId"`
		Signature string `json:"signature"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	payment, err := h.payments.Verify(c.Context(), userID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingDetails), errors.Is(err, ErrBadSignature):
			return badRequest(c, err.Error())
		case errors.Is(err, ErrApplicationNotFound):
			return notFound(c, err.Error())
		}
		return internalError(c, "Failed to verify payment")
	}

	return c.JSON(fiber.Map{"success": true, "payment": payment})
}

func (h *Handler) PaymentStatus(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	payment, paid, err := h.payments.Status(c.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrApplicationNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c, "Failed to load payment status")
	}

	return c.JSON(fiber.Map{"payment": payment, "paid": paid})
}

// Admin endpoints.

func (h *Handler) AdminList(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	status := c.Query("status")

	apps, total, err := h.service.AdminList(c.Context(), status, page, limit)
	if err != nil {
		return internalError(c, "Failed to list applications")
	}

	if limit < 1 {
		limit = 20
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return c.JSON(fiber.Map{
		"applications": apps,
		"pagination": dto.Pagination{
			Page: page, Limit: limit, Total: total, Pages: pages,
		},
	})
}

func (h *Handler) AdminGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid application id")
	}

	app, err := h.service.AdminGet(c.Context(), id)
	if err != nil {
		if errors.Is(err, ErrApplicationNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c, "Failed to load application")
	}

	return c.JSON(fiber.Map{"application": View(app)})
}

func (h *Handler) AdminVerify(c *fiber.Ctx) error {
	adminID, err := middleware.GetAdminID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid application id")
	}

	var req struct {
		Notes *string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "Invalid request body")
	}

	app, err := h.service.Verify(c.Context(), id, adminID, req.Notes)
	if err != nil {
		if errors.Is(err, ErrApplicationNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c, "Failed to verify application")
	}

	return c.JSON(fiber.Map{"success": true, "application": app})
}

func (h *Handler) AdminReject(c *fiber.Ctx) error {
	adminID, err := middleware.GetAdminID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid application id")
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	app, err := h.service.Reject(c.Context(), id, adminID, req.Notes)
	if err != nil {
		if errors.Is(err, ErrNotesRequired) {
			return badRequest(c, err.Error())
		}
		if errors.Is(err, ErrApplicationNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c, "Failed to reject application")
	}

	return c.JSON(fiber.Map{"success": true, "application": app})
}

func (h *Handler) AdminPDF(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid application id")
	}

	pdf, stream, err := h.pdfs.AdminStream(c.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPDFNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c, "Failed to load PDF")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+pdf.FileName+`"`)
	return c.SendStream(stream)
}

func readMultipartFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: msg,
	})
}
