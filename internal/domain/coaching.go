package domain

import "time"

// CoachingPayload is what the coaching agent receives when the gate fires.
type CoachingPayload struct {
	Code        string         `json:"code"`
	ASTDump     string         `json:"astDump"`
	Metrics     SessionSummary `json:"metrics"`
	FailedTests []string       `json:"failedTests"`
	VizSnapshot Value          `json:"vizSnapshot"`
}

// ReportCard is the structured part of a coaching response.
type ReportCard struct {
	Diagnosis             string `json:"diagnosis"`
	MentalModelGap        string `json:"mentalModelGap"`
	VerificationChallenge string `json:"verificationChallenge"`
}

// CoachingResult is the coaching agent's response. CognitiveShadow entries are
// passed through without interpretation.
type CoachingResult struct {
	ReportCard      ReportCard `json:"reportCard"`
	CognitiveShadow []Value    `json:"cognitiveShadow"`
}

// CoachingOutcome records one settled coaching call.
type CoachingOutcome struct {
	TriggeredAt time.Time       `json:"triggeredAt"`
	SettledAt   time.Time       `json:"settledAt"`
	RunNumber   int             `json:"runNumber"`
	Metrics     SessionSummary  `json:"metrics"`
	Result      *CoachingResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}
