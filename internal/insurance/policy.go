package insurance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/rommaana-agents/internal/domain"
)

// PolicyData fills a policy schedule.
type PolicyData struct {
	QuoteID        string  `json:"quoteId"`
	PolicyNumber   string  `json:"policyNumber"`
	CustomerName   string  `json:"customerName"`
	VehicleDetails string  `json:"vehicleDetails"`
	CoverageType   string  `json:"coverageType"`
	Premium        float64 `json:"premium"`
	ValidFrom      string  `json:"validFrom"`
	ValidTo        string  `json:"validTo"`
}

// PolicyDocument is a rendered policy schedule.
type PolicyDocument struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// IssuedPolicy is returned to the customer after issuance.
type IssuedPolicy struct {
	Status       string `json:"status"`
	PolicyNumber string `json:"policyNumber"`
	DocumentURL  string `json:"documentUrl"`
	Message      string `json:"message"`
}

const dateLayout = "2006-01-02"

// PolicyIssuer renders policy schedules from the standard templates.
type PolicyIssuer struct {
	now func() time.Time
}

// NewPolicyIssuer returns a PolicyIssuer dated by now, or time.Now when nil.
func NewPolicyIssuer(now func() time.Time) *PolicyIssuer {
	if now == nil {
		now = time.Now
	}
	return &PolicyIssuer{now: now}
}

// Generate renders data in English, or Arabic when lang is Arabic.
func (p *PolicyIssuer) Generate(data PolicyData, lang domain.Language) PolicyDocument {
	tmpl := englishPolicyTemplate
	if lang == domain.LanguageArabic {
		tmpl = arabicPolicyTemplate
	}
	r := strings.NewReplacer(
		"{{POLICY_NUMBER}}", data.PolicyNumber,
		"{{CUSTOMER_NAME}}", data.CustomerName,
		"{{VEHICLE}}", data.VehicleDetails,
		"{{COVERAGE}}", data.CoverageType,
		"{{PREMIUM}}", strconv.FormatFloat(data.Premium, 'f', -1, 64),
		"{{VALID_FROM}}", data.ValidFrom,
		"{{VALID_TO}}", data.ValidTo,
		"{{DATE}}", p.now().UTC().Format(dateLayout),
	)
	return PolicyDocument{
		URL:     fmt.Sprintf("/documents/policies/%s.pdf", data.PolicyNumber),
		Content: r.Replace(tmpl),
	}
}

// Issue numbers a one-year comprehensive policy for a quote and renders it.
func (p *PolicyIssuer) Issue(quoteID, customerName, vehicleDetails string, premium float64) IssuedPolicy {
	now := p.now().UTC()
	number := fmt.Sprintf("POL-%d", now.UnixMilli())
	doc := p.Generate(PolicyData{
		QuoteID:        quoteID,
		PolicyNumber:   number,
		CustomerName:   customerName,
		VehicleDetails: vehicleDetails,
		CoverageType:   "Comprehensive",
		Premium:        premium,
		ValidFrom:      now.Format(dateLayout),
		ValidTo:        now.AddDate(0, 0, 365).Format(dateLayout),
	}, domain.LanguageEnglish)
	return IssuedPolicy{
		Status:       "issued",
		PolicyNumber: number,
		DocumentURL:  doc.URL,
		Message:      "Policy issued successfully. Document has been sent to your email.",
	}
}

const englishPolicyTemplate = `
# INSURANCE POLICY SCHEDULE
Policy Number: {{POLICY_NUMBER}}
Date: {{DATE}}

## INSURED DETAILS
Name: {{CUSTOMER_NAME}}

## VEHICLE DETAILS
Vehicle: {{VEHICLE}}

## COVERAGE DETAILS
Type: {{COVERAGE}}
Period of Insurance: From {{VALID_FROM}} to {{VALID_TO}}
Total Premium: {{PREMIUM}} SAR

## TERMS AND CONDITIONS
This policy is issued subject to the Standard Unified Motor Insurance Policy wording approved by the Insurance Authority (IA).

1. The Company agrees to indemnify the Insured against loss or damage to the Insured Vehicle.
2. The Insured must declare all material facts.
3. In case of accident, notify the Company immediately.

Authorized Signatory
Rommaana Insurance Co.
`

const arabicPolicyTemplate = `
# جدول وثيقة التأمين
رقم الوثيقة: {{POLICY_NUMBER}}
التاريخ: {{DATE}}

## بيانات المؤمن له
الاسم: {{CUSTOMER_NAME}}

## بيانات المركبة
المركبة: {{VEHICLE}}

## تفاصيل التغطية
النوع: {{COVERAGE}}
مدة التأمين: من {{VALID_FROM}} إلى {{VALID_TO}}
إجمالي القسط: {{PREMIUM}} ريال سعودي

## الشروط والأحكام
صدرت هذه الوثيقة وفقاً للوثيقة الموحدة للتأمين الإلزامي على المركبات المعتمدة من هيئة التأمين.

1. تلتزم الشركة بتعويض المؤمن له عن الخسارة أو الضرر الذي يلحق بالمركبة المؤمن عليها.
2. يجب على المؤمن له الإفصاح عن كافة الحقائق الجوهرية.
3. في حال وقوع حادث، يجب إبلاغ الشركة فوراً.

المفوض بالتوقيع
شركة رمانة للتأمين
`
