package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/cc-statement-converter/internal/models"
)

const statementText = `STATEMENT DATE: January 15, 2024
STATEMENT PERIOD: December 16, 2023 to January 15, 2024
DEC18DEC19 $45.00 GROCERY STORE
JAN2JAN3 -$10.00 PAYMENT THANK YOU`

func setupTestApp(extract func(context.Context, string) (models.Document, error)) *fiber.App {
	return NewApp(&Handler{
		Logger:  log.New(io.Discard),
		Extract: extract,
	})
}

func decode(t *testing.T, body io.Reader) ConvertResponse {
	t.Helper()
	var result ConvertResponse
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

func multipartUpload(t *testing.T, filename string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("%PDF-1.4 fake"))
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", result["status"])
	}
	if result["engine"] != "fiber" {
		t.Errorf("expected engine=fiber, got %q", result["engine"])
	}
}

func TestConvertEndpointRequiresFile(t *testing.T) {
	app := setupTestApp(nil)

	req := httptest.NewRequest("POST", "/api/convert", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=----test")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 for missing file, got %d", resp.StatusCode)
	}
	if result := decode(t, resp.Body); result.Success || result.Error == "" {
		t.Errorf("expected failure with message, got %+v", result)
	}
}

func TestConvertExtractedText(t *testing.T) {
	app := setupTestApp(nil)

	form := url.Values{}
	form.Set("extractedText", statementText+pageBreak+"no transactions on this page")
	req := httptest.NewRequest("POST", "/api/convert", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	result := decode(t, resp.Body)
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Count != 2 || len(result.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", result.Count)
	}
	if result.Pages != 2 {
		t.Errorf("expected 2 pages, got %d", result.Pages)
	}
	if result.Total != "35.00" {
		t.Errorf("total: got %q", result.Total)
	}
	if result.Statement == nil || result.Statement.StartYear != 2023 || result.Statement.EndYear != 2024 {
		t.Errorf("statement context: got %+v", result.Statement)
	}
	if first := result.Transactions[0]; first.TransactionDate != "2023-12-18" || first.Description != "GROCERY STORE" {
		t.Errorf("first transaction: got %+v", first)
	}
	if !strings.HasPrefix(result.CSV, "transaction_date,") {
		t.Errorf("csv: got %q", result.CSV)
	}
	if len(result.DebugLines) != 0 {
		t.Errorf("debug lines should be empty unless verbose, got %d", len(result.DebugLines))
	}
}

func TestConvertUpload(t *testing.T) {
	var gotPath string
	app := setupTestApp(func(_ context.Context, path string) (models.Document, error) {
		gotPath = path
		return models.NewDocument([]string{statementText}), nil
	})

	body, contentType := multipartUpload(t, "statement.PDF", map[string]string{"verbose": "true"})
	req := httptest.NewRequest("POST", "/api/convert", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	result := decode(t, resp.Body)
	if result.Count != 2 {
		t.Errorf("expected 2 transactions, got %d", result.Count)
	}
	if len(result.DebugLines) == 0 {
		t.Error("expected debug lines in verbose mode")
	}
	if !strings.HasSuffix(gotPath, ".pdf") {
		t.Errorf("extractor got %q", gotPath)
	}
}

func TestConvertRejects(t *testing.T) {
	failing := func(context.Context, string) (models.Document, error) {
		return models.Document{}, errors.New("encrypted")
	}

	tests := []struct {
		name     string
		filename string
		fields   map[string]string
		want     int
	}{
		{"not a pdf", "statement.txt", nil, fiber.StatusBadRequest},
		{"bad thorough value", "statement.pdf", map[string]string{"thorough": "maybe"}, fiber.StatusBadRequest},
		{"extraction failure", "statement.pdf", nil, fiber.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupTestApp(failing)
			body, contentType := multipartUpload(t, tt.filename, tt.fields)
			req := httptest.NewRequest("POST", "/api/convert", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			if result := decode(t, resp.Body); result.Success {
				t.Error("expected success=false")
			}
		})
	}
}

func TestConvertRecoversPanics(t *testing.T) {
	app := setupTestApp(func(context.Context, string) (models.Document, error) {
		panic("malformed xref table")
	})

	body, contentType := multipartUpload(t, "statement.pdf", nil)
	req := httptest.NewRequest("POST", "/api/convert", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}
