package stubagent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/a2alab/relay/internal/domain"
)

var claimIDRe = regexp.MustCompile(`(?i)(CLM-\d{4})`)

func parseClaimID(text string) string {
	m := claimIDRe.FindString(text)
	return strings.ToUpper(m)
}

func containsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

type claim struct {
	MemberID string
	Status   string
	Amount   float64
}

var claims = map[string]claim{
	"CLM-1001": {MemberID: "M-001", Status: "Pending review", Amount: 1250.00},
	"CLM-1002": {MemberID: "M-002", Status: "Approved", Amount: 340.10},
	"CLM-1003": {MemberID: "M-001", Status: "Denied", Amount: 980.55},
}

type record struct {
	Diagnoses  []string
	Procedures []string
	Notes      string
}

var records = map[string]record{
	"CLM-1001": {
		Diagnoses:  []string{"Hypertension"},
		Procedures: []string{"Basic metabolic panel"},
		Notes:      "BP elevated; lifestyle counseling provided.",
	},
	"CLM-1002": {
		Diagnoses:  []string{"Type 2 Diabetes"},
		Procedures: []string{"A1C test"},
		Notes:      "A1C improved; continue metformin.",
	},
	"CLM-1003": {
		Diagnoses:  []string{"Migraine"},
		Procedures: []string{"Neuro eval"},
		Notes:      "Trial triptan; follow-up in 4 weeks.",
	},
}

// reply is the outcome of one turn: the answer text plus the metadata the
// agent attaches to steer forwarding. Final turns complete the task; turns
// that expect a follow-up leave it open.
type reply struct {
	Text     string
	Metadata map[string]any
	Final    bool
}

// NewClaimsAgent answers claim detail and status questions. Questions about
// clinical content are answered with a handoff request addressed to the
// records peer.
func NewClaimsAgent(recordsLabel string) *Agent {
	card := domain.AgentCard{
		Name:        "ClaimsAgent",
		Description: "Answers questions about health insurance claims; clinical questions are handed to " + recordsLabel + ".",
		Skills: []domain.AgentSkill{
			{ID: "get_claim_details", Name: "Get Claim Details", Description: "Return details for a claim ID."},
			{ID: "get_claim_status", Name: "Get Claim Status", Description: "Return status for a claim ID."},
		},
	}
	return &Agent{
		Card: card,
		Respond: func(input string) reply {
			text := strings.ToLower(input)
			cid := parseClaimID(input)

			if containsAny(text, "medical record", "summary of record", "summarize record", "chart note", "diagnos", "procedure") {
				if cid == "" {
					cid = "UNKNOWN"
				}
				return reply{
					Text:     fmt.Sprintf("Please summarize the medical record for claim %s.", cid),
					Metadata: map[string]any{"delegateTo": recordsLabel},
				}
			}

			c, ok := claims[cid]
			if cid == "" || !ok {
				return reply{Text: "Sorry, I couldn't find that claim.", Metadata: map[string]any{"doNotRelay": true}, Final: true}
			}
			if containsAny(text, "status", "is it approved") {
				return reply{Text: fmt.Sprintf("Claim %s status: %s.", cid, c.Status)}
			}
			return reply{Text: fmt.Sprintf("Claim %s: member=%s, amount=$%.2f, status=%s.", cid, c.MemberID, c.Amount, c.Status)}
		},
	}
}

// NewRecordsAgent answers medical record questions. Billing questions are
// handed back to the claims peer; completed summaries opt out of further
// forwarding since they are final answers.
func NewRecordsAgent(claimsLabel string) *Agent {
	card := domain.AgentCard{
		Name:        "MedicalRecordsAgent",
		Description: "Summarizes medical records for claims; billing questions are handed to " + claimsLabel + ".",
		Skills: []domain.AgentSkill{
			{ID: "get_record_details", Name: "Get Record Details", Description: "Return diagnoses and procedures for a claim ID."},
			{ID: "summarize_record", Name: "Summarize Record", Description: "Summarize the medical record for a claim ID."},
		},
	}
	return &Agent{
		Card: card,
		Respond: func(input string) reply {
			text := strings.ToLower(input)
			cid := parseClaimID(input)

			if containsAny(text, "status", "claim details", "what is the claim", "is it approved") {
				if cid == "" {
					cid = "UNKNOWN"
				}
				return reply{
					Text:     fmt.Sprintf("Please provide claim details and current status for %s.", cid),
					Metadata: map[string]any{"delegateTo": claimsLabel},
				}
			}

			rec, ok := records[cid]
			if cid == "" || !ok {
				return reply{Text: "No medical record found.", Metadata: map[string]any{"doNotRelay": true}, Final: true}
			}
			if containsAny(text, "summary", "summarize", "overview") {
				return reply{
					Text: fmt.Sprintf("Summary for %s: %s. Procedures: %s. Notes: %s",
						cid, strings.Join(rec.Diagnoses, ", "), strings.Join(rec.Procedures, ", "), rec.Notes),
					Metadata: map[string]any{"doNotRelay": true},
					Final:    true,
				}
			}
			return reply{Text: fmt.Sprintf("Record for %s: diagnoses=%s, procedures=%s.",
				cid, strings.Join(rec.Diagnoses, ", "), strings.Join(rec.Procedures, ", "))}
		},
	}
}
