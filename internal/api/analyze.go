package api

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/wodsense/internal/analysis"
	"github.com/illegalcall/wodsense/internal/pipeline"
)

// analyzeRequest is the JSON body variant; photo uploads use multipart
// form data with an "image" file field instead.
type analyzeRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url"`
}

// handleAnalyze runs the full entitlement-gated analysis pipeline for one
// workout submission.
func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	account := accountID(c)
	if account == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}

	input, err := s.parseAnalyzeInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	result := s.pipeline.CompleteAnalysis(c.Context(), account, input)
	return c.Status(statusForResult(result)).JSON(result)
}

func (s *Server) parseAnalyzeInput(c *fiber.Ctx) (analysis.Input, error) {
	var input analysis.Input

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if fileHeader, err := c.FormFile("image"); err == nil && fileHeader != nil {
			file, err := fileHeader.Open()
			if err != nil {
				return input, err
			}
			defer file.Close()
			data, err := io.ReadAll(io.LimitReader(file, s.cfg.Storage.MaxImageSize))
			if err != nil {
				return input, err
			}
			input.ImageBytes = data
			input.ImageMIME = fileHeader.Header.Get("Content-Type")
		}
		input.ImageURL = c.FormValue("image_url")
		input.RawText = c.FormValue("text")
		return input, nil
	}

	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return input, err
	}
	input.RawText = req.Text
	input.ImageURL = req.ImageURL
	return input, nil
}

func statusForResult(result pipeline.Result) int {
	if result.Success {
		return fiber.StatusOK
	}
	switch result.ErrorKind {
	case pipeline.KindNotAuthenticated:
		return fiber.StatusUnauthorized
	case pipeline.KindNoCredits:
		return fiber.StatusPaymentRequired
	case pipeline.KindMissingInput:
		return fiber.StatusBadRequest
	case pipeline.KindProvider, pipeline.KindMalformedOutput:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
