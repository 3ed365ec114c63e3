package domain

import (
	"fmt"
	"time"
)

type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// Document is one submitted Certificate of Currency. Extraction and
// verification happen outside this core; we track receipt and processing state.
type Document struct {
	ID              string
	SubcontractorID string
	ProjectID       string
	ReceivedAt      time.Time
	Status          DocumentStatus
}

type VerificationStatus string

const (
	VerificationPass   VerificationStatus = "pass"
	VerificationFail   VerificationStatus = "fail"
	VerificationReview VerificationStatus = "review"
)

// Verification is the structured outcome of the external extraction step.
// Exactly one exists per document.
type Verification struct {
	ID           string
	DocumentID   string
	ProjectID    string
	Status       VerificationStatus
	Confidence   float64
	Extracted    ExtractedData
	Deficiencies []string
	ReviewerID   string
	ReviewedAt   *time.Time
}

// ExtractedData is the validated form of the extraction payload. The raw
// payload is parsed once at the store boundary; downstream code never
// re-interprets loose maps.
type ExtractedData struct {
	PolicyNumber    string
	Insurer         string
	PolicyEndDate   *time.Time
	CoverageAmount  *float64
	FieldConfidence map[string]float64
}

// ParseExtractedData validates the opaque extraction result. Unknown keys are
// ignored; malformed values for known keys are errors so bad extractions fail
// loudly at ingestion instead of corrupting expiry checks later.
func ParseExtractedData(raw map[string]any) (ExtractedData, error) {
	var out ExtractedData
	if raw == nil {
		return out, nil
	}

	if v, ok := raw["policy_number"]; ok {
		s, ok := v.(string)
		if !ok {
			return out, fmt.Errorf("policy_number: expected string, got %T", v)
		}
		out.PolicyNumber = s
	}
	if v, ok := raw["insurer"]; ok {
		s, ok := v.(string)
		if !ok {
			return out, fmt.Errorf("insurer: expected string, got %T", v)
		}
		out.Insurer = s
	}
	if v, ok := raw["policy_end_date"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return out, fmt.Errorf("policy_end_date: expected string, got %T", v)
		}
		t, err := parseDate(s)
		if err != nil {
			return out, fmt.Errorf("policy_end_date: %w", err)
		}
		out.PolicyEndDate = &t
	}
	if v, ok := raw["coverage_amount"]; ok && v != nil {
		f, err := toFloat(v)
		if err != nil {
			return out, fmt.Errorf("coverage_amount: %w", err)
		}
		out.CoverageAmount = &f
	}
	if v, ok := raw["field_confidence"]; ok && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return out, fmt.Errorf("field_confidence: expected object, got %T", v)
		}
		out.FieldConfidence = make(map[string]float64, len(m))
		for field, cv := range m {
			f, err := toFloat(cv)
			if err != nil {
				return out, fmt.Errorf("field_confidence[%s]: %w", field, err)
			}
			out.FieldConfidence[field] = f
		}
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
