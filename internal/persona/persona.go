// Package persona holds the assistant's fixed content: the role prompt, the
// built-in job advertisement, the quick tools and the offline demo answer.
package persona

import (
	_ "embed"
	"strings"
	"unicode/utf8"
)

// Document IDs of the built-in corpus.
const (
	JobAdID   = "job_ad"
	AboutMeID = "about_me"
)

// MaxExcerptChars bounds the context excerpt shown in the offline answer.
const MaxExcerptChars = 1000

// AppName is shown in the TUI header.
const AppName = "Pop AI advisor - agent"

// Prompt is the system prompt describing the assistant's role.
const Prompt = "You are an AI agent supporting the POP Bank AI Advisor role. " +
	"Answer in Finnish (unless the user switches language) clearly and concretely and propose next steps. " +
	"Emphasise measurable benefits, risks and governance practices. Avoid hype."

//go:embed job_ad.txt
var jobAd string

// JobAd returns the built-in job advertisement text.
func JobAd() string { return jobAd }

var opportunities = []string{
	"1) Customer service Copilot: summaries, reply suggestions, CRM logging.",
	"2) Fraud score (rules+ML): signal fusion, SHAP monitoring.",
	"3) AML alert triage: prioritisation + investigation memo draft.",
	"4) Predictive lending: PD/LGD + explainability panel.",
	"5) Information request automation: guided search, audit log.",
	"6) Internal RAG search: guidelines, processes, model docs.",
}

var checklist = []string{
	"• Data governance: ownership, quality, retention, DPIA where needed.",
	"• Model lifecycle: versioning, approval, monitoring (drift/bias).",
	"• Explainability: SHAP/LIME or a policy for when it is required.",
	"• EU AI Act: classification, controls, registration when required.",
	"• Risk management: human-in-the-loop, fallback, impact assessment.",
	"• Security & access control: secrets, auditing.",
}

// AIOpportunities lists AI use cases for a bank.
func AIOpportunities() string { return strings.Join(opportunities, "\n") }

// GovernanceChecklist lists AI governance reminders.
func GovernanceChecklist() string { return strings.Join(checklist, "\n") }

// SystemPrompt assembles the role prompt, the retrieved context (if any) and
// the quick tools.
func SystemPrompt(context string) string {
	var b strings.Builder
	b.WriteString(Prompt)
	if context != "" {
		b.WriteString("\n\nContext (summarise, quote sparingly):\n")
		b.WriteString(context)
	}
	b.WriteString("\n\nQuick tools:\n")
	b.WriteString(AIOpportunities())
	b.WriteString("\n\nGovernance checklist:\n")
	b.WriteString(GovernanceChecklist())
	return b.String()
}

const plan = "### 30/60/90 day plan\n" +
	"- **30 days**: Discovery (use cases, data sources), quick POC (customer service Copilot or internal RAG), " +
	"governance principles and acceptance criteria.\n" +
	"- **60 days**: POC → pilot, metrics (SLA/CSAT/TTFR/fraud precision), monitoring (drift/bias), " +
	"documentation and training.\n" +
	"- **90 days**: Scaling (more teams/processes), cost/impact analysis, backlog prioritisation, " +
	"production process (MLOps/LLMOps).\n"

// LocalDemoResponse is the canned answer used when the chat model is not
// available. A non-empty excerpt is quoted, truncated to MaxExcerptChars.
func LocalDemoResponse(excerpt string) string {
	var b strings.Builder
	b.WriteString("#### Local demo mode (no OpenAI answers)\n")
	b.WriteString("The OpenAI call is not available (key/quota/network). Suggestions for the demo below:\n\n")
	if excerpt != "" {
		b.WriteString("> **Context (excerpts):**\n")
		b.WriteString(truncate(excerpt, MaxExcerptChars))
		b.WriteString("\n\n")
	}
	b.WriteString("#### AI opportunities for the bank\n")
	b.WriteString(AIOpportunities())
	b.WriteString("\n\n#### AI governance - checklist\n")
	b.WriteString(GovernanceChecklist())
	b.WriteString("\n\n")
	b.WriteString(plan)
	b.WriteString("Ask for more detail or add documents (PDF/TXT) and the demo will cite them through RAG search.")
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
