package insurance

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/rommaana-agents/internal/llm"
	"github.com/go-resty/resty/v2"
)

// Document types recognized by DocumentProcessor.
const (
	DocSaudiID             = "saudi_id"
	DocVehicleRegistration = "vehicle_registration"
	DocMedicalReport       = "medical_report"
	DocRepairInvoice       = "repair_invoice"
	DocAccidentReport      = "accident_report"
	DocPolicy              = "policy_document"
	DocOther               = "other"
)

// DocumentTypes are the classes a document is classified into.
var DocumentTypes = []string{
	DocSaudiID,
	DocVehicleRegistration,
	DocMedicalReport,
	DocRepairInvoice,
	DocAccidentReport,
	DocPolicy,
	DocOther,
}

const (
	classifyPrefix = 1000
	ocrPrompt      = "Extract all text from this document exactly as written. The document may be in English or Arabic. Return only the extracted text."
)

// ErrNoImage is returned when the image reference is empty.
var ErrNoImage = errors.New("no image provided")

// ProcessedDocument is the result of DocumentProcessor.Process.
type ProcessedDocument struct {
	Type       string         `json:"type"`
	Confidence float64        `json:"confidence"`
	Data       map[string]any `json:"data"`
	RawText    string         `json:"rawText"`
	Summary    string         `json:"summary"`
}

// DocumentProcessor reads insurance documents from images and extracts
// type-specific fields.
type DocumentProcessor struct {
	client *resty.Client
	vision llm.Vision
	ex     Extractor
}

// NewDocumentProcessor returns a DocumentProcessor. Remote images are
// fetched with a 20 second timeout.
func NewDocumentProcessor(vision llm.Vision, ex Extractor) *DocumentProcessor {
	return &DocumentProcessor{
		client: resty.New().SetTimeout(20 * time.Second),
		vision: vision,
		ex:     ex,
	}
}

// Process reads the image at imageRef (http(s) URL or data URL), classifies
// it unless suggestedType is given, and extracts its fields.
func (d *DocumentProcessor) Process(ctx context.Context, imageRef, suggestedType string) (*ProcessedDocument, error) {
	if d.vision == nil {
		return nil, fmt.Errorf("failed to process document: %w", llm.ErrNotConfigured)
	}
	image, mimeType, err := d.loadImage(ctx, imageRef)
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}
	text, err := d.vision.Describe(ctx, image, mimeType, ocrPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	docType, confidence := suggestedType, 1.0
	if docType == "" {
		class, err := Classify(ctx, d.ex, truncate(text, classifyPrefix), DocumentTypes)
		if err != nil {
			return nil, fmt.Errorf("failed to process document: classify: %w", err)
		}
		docType, confidence = class.Category, class.Confidence
	}

	data := map[string]any{}
	if err := d.ex.ExtractJSON(ctx, extractionPrompt(docType, text), &data); err != nil {
		return nil, fmt.Errorf("failed to process document: extract %s: %w", docType, err)
	}
	if docType == "" {
		docType = "unknown"
	}
	return &ProcessedDocument{
		Type:       docType,
		Confidence: confidence,
		Data:       data,
		RawText:    text,
		Summary:    summarize(docType, data),
	}, nil
}

// loadImage decodes a data URL or downloads a remote image.
func (d *DocumentProcessor) loadImage(ctx context.Context, ref string) ([]byte, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, "", ErrNoImage
	}
	if strings.HasPrefix(ref, "data:") {
		return DecodeDataURL(ref)
	}

	resp, err := d.client.R().SetContext(ctx).Get(ref)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("download image: status %d", resp.StatusCode())
	}
	mimeType := resp.Header().Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(resp.Body())
	}
	return resp.Body(), mimeType, nil
}

// DecodeDataURL decodes "data:<mime>;base64,<payload>". A bare base64
// payload is accepted and assumed to be JPEG.
func DecodeDataURL(s string) ([]byte, string, error) {
	mimeType := "image/jpeg"
	payload := s
	if head, body, ok := strings.Cut(s, ","); ok {
		payload = body
		if m, _, ok := strings.Cut(strings.TrimPrefix(head, "data:"), ";"); ok && m != "" {
			mimeType = m
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return data, mimeType, nil
}

func extractionPrompt(docType, text string) string {
	switch docType {
	case DocMedicalReport:
		return `Extract medical report details:
` + text + `

Required fields:
- hospital_name
- patient_name
- date_of_visit
- diagnosis (summary)
- treatments (list)
- doctor_name
- insurance_policy_number (if present)`
	case DocRepairInvoice:
		return `Extract repair invoice details:
` + text + `

Required fields:
- workshop_name
- workshop_cr (registration number)
- invoice_number
- date
- vehicle_details (make, model, plate)
- parts_cost
- labor_cost
- vat_amount
- total_amount
- line_items (array of {description, amount})`
	case DocAccidentReport:
		return `Extract accident report (Najm/Muroor) details:
` + text + `

Required fields:
- report_number
- date_time
- location
- weather_conditions
- fault_percentage (for the policy holder)
- other_parties (array of {name, plate_number, insurance_company})
- damage_description`
	case DocSaudiID:
		return `Extract Saudi ID details:
` + text + `

Required fields:
- id_number (10 digits)
- full_name_arabic
- full_name_english
- date_of_birth (Hijri/Gregorian)
- expiry_date
- place_of_birth`
	case DocVehicleRegistration:
		return `Extract Vehicle Registration (Istimara) details:
` + text + `

Required fields:
- plate_number
- owner_name
- vehicle_make
- vehicle_model
- year
- color
- vin (chassis number)
- expiry_date`
	default:
		return "Extract key value pairs from this document:\n" + text
	}
}

func summarize(docType string, data map[string]any) string {
	f := func(key string) string {
		if v, ok := data[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return "unknown"
	}
	switch docType {
	case DocMedicalReport:
		return fmt.Sprintf("Medical report from %s for %s. Diagnosis: %s.", f("hospital_name"), f("patient_name"), f("diagnosis"))
	case DocRepairInvoice:
		return fmt.Sprintf("Repair invoice from %s. Total Amount: %s.", f("workshop_name"), f("total_amount"))
	case DocAccidentReport:
		return fmt.Sprintf("Accident report. Location: %s. Fault: %s%%.", f("location"), f("fault_percentage"))
	case DocSaudiID:
		return fmt.Sprintf("Saudi ID for %s (%s).", f("full_name_english"), f("id_number"))
	case DocVehicleRegistration:
		return fmt.Sprintf("Registration for %s %s (%s).", f("vehicle_make"), f("vehicle_model"), f("plate_number"))
	default:
		return "Document processed."
	}
}
