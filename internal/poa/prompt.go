// Package poa drafts Walmart Plan of Action letters from a case description and reference letters.
package poa

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/kb"
	"github.com/zeyuan/appeal-service/internal/models"
)

const dateLayout = "2006-01-02"

// Request describes the case to draft for.
type Request struct {
	Type               kb.PoaType `json:"type" form:"type"`
	SubType            string     `json:"sub_type" form:"sub_type"`
	StoreName          string     `json:"store_name" form:"store_name"`
	PartnerID          string     `json:"partner_id" form:"partner_id"`
	SuspensionDate     string     `json:"suspension_date" form:"suspension_date"` // YYYY-MM-DD; empty means today.
	RootCause          string     `json:"root_cause" form:"root_cause"`
	TableData          string     `json:"table_data" form:"table_data"` // Flattened spreadsheet.
	CurrentMetric      string     `json:"current_metric" form:"current_metric"`
	TargetMetric       string     `json:"target_metric" form:"target_metric"`
	CustomInstructions string     `json:"custom_instructions" form:"custom_instructions"`
}

// Staff are the personnel named in the letter.
type Staff struct {
	Manager    string `json:"manager"`
	Warehouse  string `json:"warehouse"`
	CS         string `json:"cs"`
	Compliance string `json:"compliance"`
}

var (
	firstNames = []string{"Mike", "David", "Sarah", "Jessica", "James", "Wei", "Lei", "Hui", "Emily", "Robert", "Chris", "Amanda"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Chen", "Wang", "Liu", "Zhang", "Miller", "Davis", "Wu", "Rodriguez", "Lee"}
)

// RandomStaff draws four names. A nil r uses the global source.
func RandomStaff(r *rand.Rand) Staff {
	intn := rand.IntN
	if r != nil {
		intn = r.IntN
	}
	name := func() string {
		return firstNames[intn(len(firstNames))] + " " + lastNames[intn(len(lastNames))]
	}
	return Staff{Manager: name(), Warehouse: name(), CS: name(), Compliance: name()}
}

// normalize trims the request and fills the suspension date.
func (r Request) normalize(today time.Time) (Request, error) {
	r.StoreName = strings.TrimSpace(r.StoreName)
	r.PartnerID = strings.TrimSpace(r.PartnerID)
	r.SubType = strings.TrimSpace(r.SubType)
	r.SuspensionDate = strings.TrimSpace(r.SuspensionDate)
	if r.StoreName == "" || r.PartnerID == "" {
		return r, apperr.Validation("store name and partner id are required")
	}
	if !r.Type.Valid() {
		return r, apperr.Validation("unknown POA type %q", r.Type)
	}
	if r.SubType == "" {
		return r, apperr.Validation("sub type is required")
	}
	if r.SuspensionDate == "" {
		r.SuspensionDate = today.Format(dateLayout)
	} else if _, errParse := time.Parse(dateLayout, r.SuspensionDate); errParse != nil {
		return r, apperr.Validation("suspension date must be YYYY-MM-DD")
	}
	return r, nil
}

func isIPIssue(subType string) bool {
	return strings.Contains(subType, "知识产权") || strings.Contains(subType, "侵权") || strings.Contains(subType, "IP")
}

// BuildPrompt assembles the generation prompt. today anchors the action timeline.
func BuildPrompt(req Request, refs []models.KnowledgeBaseItem, staff Staff, today time.Time) (string, error) {
	req, errReq := req.normalize(today)
	if errReq != nil {
		return "", errReq
	}
	todayStr := today.Format(dateLayout)

	var sys strings.Builder
	fmt.Fprintf(&sys, `You are a professional Walmart Appeal Specialist. Your task is to write a highly persuasive Plan of Action (POA).

Structure:
1. Intro (Apology, Store Name: %[1]s, PID: %[2]s)
2. Root Cause (THE "5 WHYS" Deep Analysis)
3. Immediate Actions (Completed actions from %[3]s to %[4]s)
4. Preventative Measures (Multi-tier Review Process)
5. Implementation Plan (Future timeline & Personnel)
6. Conclusion (Reinstatement request)

CRITICAL WRITING RULES:

1. ROOT CAUSE, "5 WHYS" AND MULTI-TAB ANALYSIS:
   - The Table Data Extract below may contain several sheets, each under a "====== TAB/SHEET: [Name] ======" header.
   - Data in "Late Shipment" or "Late handover" tabs points to a seller fault (inventory or staffing).
   - Data in "Carrier Delays" or "No Carrier Scan" tabs may be a carrier fault, but packages must still be scanned earlier.
   - Quote specific Order IDs and dates from the tabs. Drill down five levels instead of saying "we had a delay".

2. PREVENTATIVE MEASURES, MULTI-TIER REVIEW:
   - Describe a maker-checker workflow in which one person prepares the work and another performs a final quality check.
   - Use the personnel names listed below.

3. QUANTIFIABLE GOALS (SMART):
   - Include the sentence "Our goal is to reach [Target Metric] for [Metric Name] within 30 days." and compare it with the current metric.
   - Define monitoring routines, for example "Daily audit at 9:00 AM EST".

4. POLICY CITATION:
   - Reference "Walmart Seller Performance Standards" or "Walmart Intellectual Property Policy" as the issue requires.

5. NO ATTACHMENT REFERENCES:
   - Never write "please see attached file", "refer to exhibit" or similar. Describe the data inline.

6. TIMELINE:
   - Phase A (Immediate): actions taken from %[3]s to %[4]s.
   - Phase B (Future): actions planned from %[4]s to +90 days.

PERSONNEL TO USE:
   - Operations Lead: %[5]s
   - Warehouse Lead: %[6]s
   - CS Supervisor: %[7]s
   - Compliance Officer: %[8]s
`, req.StoreName, req.PartnerID, req.SuspensionDate, todayStr, staff.Manager, staff.Warehouse, staff.CS, staff.Compliance)

	if req.Type == kb.PoaFulfillmentSuspension {
		sys.WriteString("\nConstraint: Fulfillment Suspension POA must be under 1000 chars. Keep it concise but specific.")
	} else {
		sys.WriteString("\nConstraint: Account Suspension POA should be detailed (800-1500 words).")
	}
	if isIPIssue(req.SubType) {
		sys.WriteString("\nIP Focus: State infringing listings are deleted. Mention inventory audit, invoice verification & IP training.")
	}
	if custom := strings.TrimSpace(req.CustomInstructions); custom != "" {
		sys.WriteString("\n\nUSER OVERRIDE: " + custom)
	}

	examples := make([]string, 0, len(refs))
	for _, ref := range refs {
		examples = append(examples, fmt.Sprintf("Example Case (%s):\n%s", ref.Title, ref.Content))
	}

	var b strings.Builder
	b.WriteString(sys.String())
	b.WriteString("\n\nReference Examples (Style Guide only, do not copy dates/names):\n")
	b.WriteString(strings.Join(examples, "\n\n"))
	b.WriteString("\n\nNow write the POA based on the USER CONTEXT below:\n")
	fmt.Fprintf(&b, "Type: %s - %s\n", req.Type.Label(), req.SubType)
	fmt.Fprintf(&b, "Store: %s (PID: %s)\n", req.StoreName, req.PartnerID)
	fmt.Fprintf(&b, "Suspension Date: %s\n", req.SuspensionDate)
	fmt.Fprintf(&b, "Root Cause Detail (User Input): %s\n\n", strings.TrimSpace(req.RootCause))
	b.WriteString("--- SPECIFIC TABLE DATA (Contains multiple sheets, please cite specific tabs) ---\n")
	fmt.Fprintf(&b, "Table Data Extract: %s\n\n", orDefault(req.TableData, "No specific table data provided."))
	fmt.Fprintf(&b, "Current Metric: %s\n", orDefault(req.CurrentMetric, "N/A"))
	fmt.Fprintf(&b, "Target Metric: %s\n", orDefault(req.TargetMetric, "N/A"))
	return b.String(), nil
}

var (
	storeNamePlaceholder = regexp.MustCompile(`(?i)\[(your )?store name\]`)
	partnerIDPlaceholder = regexp.MustCompile(`(?i)\[your partner id\]`)
	datePlaceholder      = regexp.MustCompile(`(?i)\[date\]`)
)

// FillPlaceholders replaces template markers left in generated text.
// [Date] becomes the suspension date.
func FillPlaceholders(text string, req Request) string {
	text = storeNamePlaceholder.ReplaceAllLiteralString(text, req.StoreName)
	text = partnerIDPlaceholder.ReplaceAllLiteralString(text, req.PartnerID)
	return datePlaceholder.ReplaceAllLiteralString(text, req.SuspensionDate)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
