package research

import (
	"encoding/json"

	"github.com/sweetpotato0/deepresearch/prompt"
)

// System roles for each research persona. The personas differ only in role
// text and the shape they are asked to reply in; there is no behavioral
// hierarchy behind them.
const (
	leadResearcherRole = `You are a LeadResearcher agent responsible for planning, coordinating, and synthesizing research.

Your responsibilities:
1. Plan research approaches for complex queries
2. Decompose research tasks into parallelizable sub-tasks
3. Synthesize results from multiple subagents
4. Determine if additional research iterations are needed
5. Ensure comprehensive coverage of the research topic

Always respond in JSON format for structured data processing.
Be thorough, analytical, and systematic in your approach.`

	subagentRoleTemplate = `You are a Subagent focused on: %s

Your task: %s

Your responsibilities:
1. Conduct focused web searches on your assigned topic
2. Evaluate and filter search results for relevance and quality
3. Extract key information and insights
4. Provide structured, factual responses
5. Identify credible sources and cite them properly

Always respond in JSON format for structured data processing.
Be thorough, objective, and focus on your specific research area.`

	citationRole = `You are a CitationAgent responsible for processing research reports and inserting proper citations.

Your responsibilities:
1. Identify statements that need citations
2. Match statements to appropriate sources
3. Insert citations in the specified format
4. Ensure all claims are properly attributed
5. Maintain the original content while adding citations

Always respond in JSON format for structured data processing.
Be thorough in citation placement and maintain academic standards.`
)

// Prompt template names.
const (
	tmplPlan      = "plan"
	tmplDecompose = "decompose"
	tmplEvaluate  = "evaluate"
	tmplSynth     = "synthesize"
	tmplDecide    = "decide"
	tmplCite      = "cite"
)

const planTemplate = `Research Query: {{.Query}}

Create a comprehensive research plan that includes:
1. Research objectives and scope
2. Key areas to investigate
3. Potential sources and methodologies
4. Success criteria
5. Timeline considerations

Respond with a JSON object containing:
{
    "objectives": ["list of research objectives"],
    "scope": "description of research scope",
    "key_areas": ["list of key areas to investigate"],
    "methodologies": ["list of research methodologies"],
    "success_criteria": ["list of success criteria"],
    "estimated_iterations": <number>
}`

const decomposeTemplate = `Research Query: {{.Query}}
Research Plan: {{.Plan}}

Decompose this research into 2-4 parallelizable sub-tasks that can be executed by different subagents.
Each sub-task should focus on a specific aspect of the research.

Respond with a JSON array of sub-tasks:
[
    {
        "id": "task_1",
        "title": "Task title",
        "description": "Detailed task description",
        "focus_area": "Specific area of focus",
        "search_queries": ["specific search terms to use"],
        "expected_output": "What this task should produce"
    }
]`

const evaluateTemplate = `Task Focus: {{.FocusArea}}
Expected Output: {{.ExpectedOutput}}

Search Results:
{{.Results}}

Evaluate these search results and provide:
1. Summary of findings
2. Key insights relevant to the task
3. Assessment of source credibility
4. Gaps or limitations in the information

Respond with a JSON object:
{
    "summary": "comprehensive summary of findings",
    "key_insights": ["list of key insights"],
    "credible_sources": ["list of most credible sources"],
    "limitations": ["list of limitations or gaps"],
    "confidence": "high/medium/low",
    "relevance_score": <0-100>
}`

const synthesizeTemplate = `Research Query: {{.Query}}
Subagent Results: {{.Results}}

Synthesize these results into a comprehensive research report.

Respond with a JSON object containing:
{
    "executive_summary": "Brief overview of findings",
    "key_findings": ["list of main findings"],
    "detailed_analysis": "Comprehensive analysis of the research",
    "sources": ["list of sources used"],
    "gaps_identified": ["any gaps in the research"],
    "recommendations": ["recommendations for further research"],
    "confidence_level": "high/medium/low",
    "completeness_score": <0-100>
}`

const decideTemplate = `Current Research Synthesis: {{.Synthesis}}
Current Iteration: {{.Iteration}}

Evaluate if additional research is needed based on:
1. Completeness of findings
2. Confidence level
3. Identified gaps
4. Quality of sources

Respond with a JSON object:
{
    "needs_more_research": true/false,
    "reasoning": "explanation of decision",
    "specific_gaps": ["specific areas that need more research"],
    "refined_queries": ["specific queries for next iteration"],
    "priority": "high/medium/low"
}`

const citeTemplate = `Content to process:
{{.Content}}

Available sources:
{{.Sources}}

Analyze the content and identify statements that need citations. For each statement that requires a citation:
1. Identify the specific claim or fact
2. Match it to the most appropriate source
3. Insert a citation in markdown format: [Source X](url)

Respond with a JSON object:
{
    "cited_content": "content with citations inserted",
    "citations": [
        {
            "claim": "specific claim that was cited",
            "source_index": <0-based index of source>,
            "source_url": "url of the source",
            "citation_markup": "[Source X](url)"
        }
    ]
}`

// newPromptManager registers every research prompt template. Registration
// only fails on a malformed template constant, which is a programmer error.
func newPromptManager() *prompt.Manager {
	m := prompt.NewManager()
	for name, content := range map[string]string{
		tmplPlan:      planTemplate,
		tmplDecompose: decomposeTemplate,
		tmplEvaluate:  evaluateTemplate,
		tmplSynth:     synthesizeTemplate,
		tmplDecide:    decideTemplate,
		tmplCite:      citeTemplate,
	} {
		if err := m.RegisterString(name, content); err != nil {
			panic(err)
		}
	}
	return m
}

// asJSON renders v as indented JSON for prompt interpolation; the zero
// string on failure keeps prompt building non-raising.
func asJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
