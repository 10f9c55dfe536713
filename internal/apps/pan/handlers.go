package pan

import (
	"errors"
	"io"
	"mime/multipart"

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
	service *Service
	pdfs    *PDFService
	ai      *services.AIService
}

func NewHandler(service *Service, pdfs *PDFService, ai *services.AIService) *Handler {
	return &Handler{service: service, pdfs: pdfs, ai: ai}
}

func (h *Handler) Get(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	app, err := h.service.Current(c.Context(), userID)
	if err != nil {
		return internalError(c, "Failed to load PAN application")
	}
	if app == nil {
		return c.JSON(fiber.Map{"panApplication": nil})
	}
	return c.JSON(fiber.Map{"panApplication": app})
}

func (h *Handler) Save(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req struct {
		StepNumber int                    `json:"stepNumber"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Data == nil {
		req.Data = map[string]interface{}{}
	}

	app, err := h.service.Save(c.Context(), userID, req.Data)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAppType),
			errors.Is(err, ErrInvalidCategory),
			errors.Is(err, ErrInvalidPOI),
			errors.Is(err, ErrInvalidPOA),
			errors.Is(err, ErrInvalidPOB):
			return badRequest(c, err.Error())
		}
		return internalError(c, "Failed to save PAN application")
	}

	return c.JSON(fiber.Map{"success": true, "panApplication": app})
}

func (h *Handler) Submit(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	app, err := h.service.Submit(c.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(c, err.Error())
		}
		if errors.Is(err, ErrAlreadySubmitted) {
			return badRequest(c, err.Error())
		}
		return internalError(c, "Failed to submit PAN application")
	}

	return c.JSON(fiber.Map{"success": true, "panApplication": app})
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
	purpose := c.FormValue("purpose")
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

	doc, err := h.service.UploadDocument(c.Context(), userID, purpose, file.Filename, mimeType, data)
	if err != nil {
		if errors.Is(err, ErrInvalidPurpose) {
			return badRequest(c, err.Error())
		}
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
		if errors.Is(err, ErrDocumentNotOwned) {
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
		if errors.Is(err, ErrPDFNotReady) || errors.Is(err, ErrPDFNotFound) {
			return notFound(c, err.Error())
		}
		return internalError(c, "Failed to load PDF")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+pdf.FileName+`"`)
	return c.SendStream(stream)
}

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
		stepData = app.StepDataMap()
	}

	answer, err := h.ai.PanChat(c.Context(), req.Message, req.CurrentStep, stepData)
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
