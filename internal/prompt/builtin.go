package prompt

// Template names for the five reasoning operations.
const (
	TemplateReason       = "reason"
	TemplatePredictStack = "predict_stack"
	TemplateAudit        = "audit"
	TemplateProposeFix   = "propose_fix"
	TemplateSummarize    = "summarize"
)

// builtinTemplates maps template name to content.
var builtinTemplates = map[string]string{
	TemplateReason:       reasonTemplate,
	TemplatePredictStack: predictStackTemplate,
	TemplateAudit:        auditTemplate,
	TemplateProposeFix:   proposeFixTemplate,
	TemplateSummarize:    summarizeTemplate,
}

const reasonTemplate = `You are an autonomous DevOps remediation agent.
Generate a concise technical reasoning log entry for the following situation:

{{context}}

Format it as a professional engineer's internal thought process. Keep it under 60 words. Respond with plain text only.`

const predictStackTemplate = `You are classifying a source repository by its file listing.

Repository: {{repo_url}}

File listing (sample):
{{file_tree}}

Respond with a single JSON object and nothing else:
{"language": "<primary language and version guess>", "framework": "<primary test or app framework>", "confidence": <0.0-1.0>}`

const auditTemplate = `You are an autonomous DevOps remediation agent auditing a repository for defects.

Repository: {{repo_url}}
Branch: {{branch}}

File listing:
{{file_tree}}

Selected file contents:
{{context_blob}}

Identify up to 5 concrete, high-confidence issues (bugs, unhandled errors, unsafe patterns). Respond with a single JSON object and nothing else:
{
  "techStack": "<primary language / framework summary>",
  "issues": [
    {"id": "<short-id>", "title": "<one line>", "severity": "Critical|Major|Minor", "file": "<relative path>", "description": "<what is wrong and why it matters>"}
  ]
}
If the code is clean, return an empty issues array.`

const proposeFixTemplate = `You are an autonomous DevOps remediation agent generating a stabilization patch.

Issue: {{issue_title}}
Severity: {{issue_severity}}
File: {{issue_file}}
Description: {{issue_description}}

Relevant repository context:
{{context_blob}}

Respond with a single JSON object and nothing else:
{
  "filePath": "<relative path of the primary file>",
  "explanation": "<what the patch does>",
  "rootCause": "<underlying cause in one sentence>",
  "impactRadius": ["<other files the change touches>"],
  "verificationStrategy": "<how to confirm the fix holds>",
  "before": [{"type": "neutral|removed", "content": "<line>", "lineNumber": <n>}],
  "after": [{"type": "neutral|added", "content": "<line>", "lineNumber": <n>}]
}`

const summarizeTemplate = `You are an autonomous DevOps remediation agent writing the final run report.

Repository: {{repo_url}} (branch {{branch}})
Detected stack: {{tech_stack}}
Issues audited: {{issue_count}}
{{#if issue_titles}}
Issues addressed:
{{issue_titles}}
{{/if}}
Final confidence: {{confidence}}
Risk level: {{risk_level}}

Write a concise executive report summary (under 200 words) of what was audited, what was stabilized, and the resulting system health. Respond with plain text only.`
