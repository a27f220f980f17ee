// Package notes drafts DAP-format clinical notes from session transcripts.
package notes

import (
	"fmt"
	"strings"
	"time"

	"github.com/sessionably/practice/internal/platform/llm"
)

const (
	defaultClientName  = "Client"
	defaultSessionType = "Individual Therapy"
)

type GenerateRequest struct {
	Transcript  string `json:"transcript"`
	ClientName  string `json:"client_name"`
	SessionDate string `json:"session_date"`
	SessionType string `json:"session_type"`
	Duration    int    `json:"duration"`
	Diagnosis   string `json:"diagnosis"`
}

type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	ClientName  string    `json:"client_name"`
	SessionDate string    `json:"session_date"`
}

type GenerateResponse struct {
	Note     string    `json:"note"`
	Model    string    `json:"model"`
	Usage    llm.Usage `json:"usage"`
	Metadata Metadata  `json:"metadata"`
}

// Prompt builds the DAP instruction for a session.
func Prompt(req *GenerateRequest) string {
	var b strings.Builder
	b.WriteString("You are an experienced clinical psychologist creating a professional clinical note in DAP (Data, Assessment, Plan) format.\n\n")
	b.WriteString("Session Details:\n")
	fmt.Fprintf(&b, "- Client: %s\n", req.ClientName)
	fmt.Fprintf(&b, "- Date: %s\n", req.SessionDate)
	fmt.Fprintf(&b, "- Session Type: %s\n", req.SessionType)
	if req.Duration > 0 {
		fmt.Fprintf(&b, "- Duration: %d minutes\n", req.Duration)
	}
	if req.Diagnosis != "" {
		fmt.Fprintf(&b, "- Diagnosis: %s\n", req.Diagnosis)
	}
	b.WriteString("\nSession Transcript:\n")
	b.WriteString(strings.TrimSpace(req.Transcript))
	b.WriteString(dapInstructions)
	return b.String()
}

const dapInstructions = `

Please generate a comprehensive clinical note in DAP format with the following sections:

**DATA (Subjective & Objective Information):**
- Client's reported mood, thoughts, and concerns
- Observable behaviors and presentation
- Any relevant physical or environmental factors

**ASSESSMENT (Clinical Analysis):**
- Clinical impressions and formulation
- Progress toward treatment goals
- Risk assessment if applicable
- Themes and patterns observed

**PLAN (Treatment Plan & Next Steps):**
- Interventions used in this session
- Homework or between-session tasks
- Modifications to treatment plan if needed
- Next session plan and focus areas

Guidelines:
1. Use professional, clinical language
2. Be objective and factual
3. Avoid diagnostic conclusions unless clearly supported
4. Include specific examples from the session
5. Be concise but comprehensive
6. Maintain client confidentiality (use "client" rather than names in the note)
7. Focus on clinically relevant information

Generate the note now:`
