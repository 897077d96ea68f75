package api

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/insightdelivered/cc-statement-converter/internal/extractor"
	"github.com/insightdelivered/cc-statement-converter/internal/models"
	"github.com/insightdelivered/cc-statement-converter/internal/parser"
	"github.com/insightdelivered/cc-statement-converter/internal/writer"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// pageBreak separates pages in client-side extracted text.
const pageBreak = "\n---PAGE_BREAK---\n"

// ConvertResponse is the JSON response from the /api/convert endpoint.
type ConvertResponse struct {
	Success      bool                     `json:"success"`
	Error        string                   `json:"error,omitempty"`
	Statement    *models.StatementContext `json:"statement,omitempty"`
	Transactions []models.Transaction     `json:"transactions"`
	CSV          string                   `json:"csv,omitempty"`
	Total        string                   `json:"total,omitempty"`
	Count        int                      `json:"count"`
	Recovered    int                      `json:"recovered"`
	Pages        int                      `json:"pages"`
	DebugLines   []models.DebugLine       `json:"debugLines,omitempty"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	// Defaults apply when the request does not set thorough or verbose.
	Defaults parser.Options
	Timeout  time.Duration
	Logger   *log.Logger
	Extract  func(ctx context.Context, path string) (models.Document, error)
}

// NewApp returns a fiber app with the API routes registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "cc-statement-converter",
		BodyLimit:             32 << 20,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "POST, GET, OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/convert", h.HandleConvert)
}

// HandleHealth reports service liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"engine":  "fiber",
	})
}

// HandleConvert parses an uploaded statement PDF, or text already
// extracted by the client, and returns its transactions as JSON and CSV.
func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	requestID := uuid.NewString()
	logger := h.logger().With("request", requestID)

	opts, err := h.options(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}

	var doc models.Document
	if text := c.FormValue("extractedText"); strings.TrimSpace(text) != "" {
		var pages []string
		for _, page := range strings.Split(text, pageBreak) {
			if strings.TrimSpace(page) != "" {
				pages = append(pages, page)
			}
		}
		doc = models.NewDocument(pages)
	} else {
		doc, err = h.extractUpload(c, requestID)
		if err != nil {
			return err
		}
	}
	logger.Info("converting statement", "pages", doc.PageCount(), "thorough", opts.Thorough)

	info := parser.New(opts, logger).Parse(doc)

	var csvBuf bytes.Buffer
	csvWriter := &writer.CSVWriter{}
	if err := csvWriter.Write(&csvBuf, info.Transactions); err != nil {
		return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
	}

	// nil marshals to JSON null, not []
	txns := info.Transactions
	if txns == nil {
		txns = []models.Transaction{}
	}

	return c.JSON(ConvertResponse{
		Success:      true,
		Statement:    &info.Context,
		Transactions: txns,
		CSV:          csvBuf.String(),
		Total:        info.Total().StringFixed(2),
		Count:        len(txns),
		Recovered:    info.Recovered,
		Pages:        doc.PageCount(),
		DebugLines:   info.DebugLines,
	})
}

func (h *Handler) extractUpload(c *fiber.Ctx, requestID string) (models.Document, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return models.Document{}, writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		return models.Document{}, writeError(c, fiber.StatusBadRequest, "Only PDF files are supported.")
	}

	tmpPath := filepath.Join(os.TempDir(), "statement-"+requestID+".pdf")
	if err := c.SaveFile(header, tmpPath); err != nil {
		return models.Document{}, writeError(c, fiber.StatusInternalServerError, "Failed to save uploaded file.")
	}
	defer os.Remove(tmpPath)

	ctx := c.UserContext()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	extract := h.Extract
	if extract == nil {
		extract = extractor.Extract
	}
	doc, err := extract(ctx, tmpPath)
	if err != nil {
		return models.Document{}, writeError(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF extraction failed: %v", err))
	}
	return doc, nil
}

// options reads the thorough and verbose form fields over the defaults.
func (h *Handler) options(c *fiber.Ctx) (parser.Options, error) {
	opts := h.Defaults
	for name, dst := range map[string]*bool{"thorough": &opts.Thorough, "verbose": &opts.Verbose} {
		v := c.FormValue(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid %s value %q", name, v)
		}
		*dst = b
	}
	return opts, nil
}

func (h *Handler) logger() *log.Logger {
	if h.Logger == nil {
		return log.Default()
	}
	return h.Logger
}

// writeError sends a failed ConvertResponse. The returned error is the
// result of writing the response, so handlers can return it directly.
func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ConvertResponse{
		Success:      false,
		Error:        msg,
		Transactions: []models.Transaction{},
	})
}
