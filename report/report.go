// Package report builds farming-report queries from structured form input
// and renders pipeline answers to sanitized HTML.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Request carries the farm details collected from the report form. Every
// field is optional; only provided fields contribute to the query.
type Request struct {
	Query           string `json:"user_report_query"`
	SoilType        string `json:"soil_type"`
	Budget          string `json:"budget"`
	CropPreference  string `json:"crop_preference"`
	LandArea        string `json:"land_area"`
	ClimateZone     string `json:"climate_zone"`
	AdditionalNotes string `json:"additional_notes"`

	// ImageContext is text extracted from an uploaded field photo or
	// scanned document, usually through OCR.
	ImageContext string `json:"image_context"`
}

// IsEmpty reports whether the request carries no usable input at all.
func (r Request) IsEmpty() bool {
	fields := []string{
		r.Query, r.SoilType, r.Budget, r.CropPreference,
		r.LandArea, r.ClimateZone, r.AdditionalNotes, r.ImageContext,
	}
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// reportInstructions is appended to every report query so the pipeline
// returns an end-to-end plan instead of a short answer.
const reportInstructions = "The report should cover the entire process from cultivation to harvesting, " +
	"including optimal crop selection, detailed cultivation practices, pest and disease management, " +
	"irrigation strategies, fertilization plans, estimated costs, expected yields, " +
	"and current market rates for the produce. Provide a comprehensive and actionable plan."

// BuildQuery assembles the pipeline query for a report request.
func BuildQuery(req Request) string {
	var parts []string

	if q := strings.TrimSpace(req.Query); q != "" {
		parts = append(parts, fmt.Sprintf("User's specific request: %s", q))
	} else {
		parts = append(parts, "Generate a detailed farming report and recommendations.")
	}
	parts = append(parts, "Consider the following information (if provided):")

	if v := strings.TrimSpace(req.SoilType); v != "" {
		parts = append(parts, fmt.Sprintf("- Soil Type: %s", v))
	}
	if v := strings.TrimSpace(req.Budget); v != "" {
		parts = append(parts, fmt.Sprintf("- Budget: $%s", v))
	}
	if v := strings.TrimSpace(req.CropPreference); v != "" {
		parts = append(parts, fmt.Sprintf("- Crop Preference: %s", v))
	}
	if v := strings.TrimSpace(req.LandArea); v != "" {
		parts = append(parts, fmt.Sprintf("- Land Area: %s acres", v))
	}
	if v := strings.TrimSpace(req.ClimateZone); v != "" {
		parts = append(parts, fmt.Sprintf("- Climate Zone: %s", v))
	}
	if v := strings.TrimSpace(req.AdditionalNotes); v != "" {
		parts = append(parts, fmt.Sprintf("- Additional Notes: %s", v))
	}
	if v := strings.TrimSpace(req.ImageContext); v != "" {
		parts = append(parts, fmt.Sprintf("- Image Context: %s", v))
	}

	parts = append(parts, reportInstructions)
	return strings.Join(parts, "\n")
}

// RenderHTML converts pipeline Markdown to HTML and strips anything outside
// the UGC sanitization policy. The output is safe to embed in a page.
func RenderHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags,
	})
	raw := markdown.ToHTML([]byte(md), p, renderer)
	return string(bluemonday.UGCPolicy().SanitizeBytes(raw))
}
