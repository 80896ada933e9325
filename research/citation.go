package research

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sweetpotato0/deepresearch/config"
	"github.com/sweetpotato0/deepresearch/gateway"
	"github.com/sweetpotato0/deepresearch/pkg/logging"
	"github.com/sweetpotato0/deepresearch/prompt"
)

// snippetContextLimit caps how many characters of a snippet are kept as
// source context.
const snippetContextLimit = 200

// CitationEngine attributes the claims of a synthesis to the sources the
// sub-tasks collected. Attribution is strictly post-hoc: the synthesis text
// is only ever rewritten by inserting citation markup, and a section whose
// citation pass fails is carried through unchanged.
type CitationEngine struct {
	gw      gateway.Gateway
	cfg     *config.Pipeline
	prompts *prompt.Manager
	logger  *slog.Logger
}

// NewCitationEngine creates a citation engine on the given gateway.
func NewCitationEngine(gw gateway.Gateway, cfg *config.Pipeline) *CitationEngine {
	if cfg == nil {
		cfg = config.DefaultPipeline()
	}
	return &CitationEngine{
		gw:      gw,
		cfg:     cfg,
		prompts: newPromptManager(),
		logger:  logging.WithComponent("citation"),
	}
}

// Attribute produces the final cited report. With no sources available the
// synthesis passes through uncited; otherwise each section is cited
// independently so one bad reply cannot corrupt the others.
func (e *CitationEngine) Attribute(ctx context.Context, syn *Synthesis, results []SubTaskResult) *CitedReport {
	report := &CitedReport{
		Synthesis:  *syn,
		Citations:  []Citation{},
		SourceList: []Source{},
	}
	report.CitationMetadata.Style = e.cfg.CitationStyle

	sources := extractSources(results)
	if len(sources) == 0 {
		e.logger.Info("no sources available, report passes through uncited", "query", syn.Query)
		return report
	}
	report.SourceList = sources

	summary, summaryCites := e.citeSection(ctx, syn.ExecutiveSummary, sources)
	analysis, analysisCites := e.citeSection(ctx, syn.DetailedAnalysis, sources)
	findingsText, findingsCites := e.citeSection(ctx, strings.Join(syn.KeyFindings, "\n"), sources)

	report.ExecutiveSummary = summary
	report.DetailedAnalysis = analysis
	if len(syn.KeyFindings) > 0 {
		report.KeyFindings = strings.Split(findingsText, "\n")
	}

	report.Citations = append(report.Citations, summaryCites...)
	report.Citations = append(report.Citations, analysisCites...)
	report.Citations = append(report.Citations, findingsCites...)

	report.CitationMetadata.TotalCitations = len(report.Citations)
	report.CitationMetadata.SourcesUsed = len(sources)
	return report
}

// citeSection runs the citation pass over one section. Any failure returns
// the content untouched with no citations.
func (e *CitationEngine) citeSection(ctx context.Context, content string, sources []Source) (string, []Citation) {
	if strings.TrimSpace(content) == "" {
		return content, nil
	}

	text, err := e.prompts.Render(tmplCite, map[string]any{
		"Content": content,
		"Sources": formatSources(sources),
	})
	if err != nil {
		e.logger.Warn("citation prompt render failed", "error", err)
		return content, nil
	}

	reply, err := e.gw.Complete(ctx, &gateway.Request{
		SystemRole: citationRole,
		Prompt:     text,
	})
	if err != nil {
		e.logger.Warn("citation generation failed, section passes through", "error", err)
		return content, nil
	}

	var parsed struct {
		CitedContent string     `json:"cited_content"`
		Citations    []Citation `json:"citations"`
	}
	if err := decodeReply(reply, &parsed); err != nil {
		e.logger.Warn("citation reply unparseable, section passes through")
		return content, nil
	}
	if parsed.CitedContent == "" {
		parsed.CitedContent = content
	}

	return parsed.CitedContent, validateCitations(parsed.Citations, sources)
}

// validateCitations drops citations whose source index falls outside the
// source list and back-fills url and title from the indexed source, so no
// dangling reference survives into the report.
func validateCitations(citations []Citation, sources []Source) []Citation {
	valid := make([]Citation, 0, len(citations))
	for _, c := range citations {
		if c.SourceIndex < 0 || c.SourceIndex >= len(sources) {
			continue
		}
		src := sources[c.SourceIndex]
		c.SourceURL = src.URL
		c.SourceTitle = src.Title
		if c.Markup == "" {
			c.Markup = fmt.Sprintf("[Source %d](%s)", c.SourceIndex+1, src.URL)
		}
		valid = append(valid, c)
	}
	return valid
}

// extractSources collects every url the sub-tasks surfaced, walking each
// result in order: its search hits first, then its agent-flagged credible
// sources. Urls are deduplicated with first occurrence winning, so a
// credible-source url from an earlier result keeps its synthetic title even
// when a later result's search hit carries the same url.
func extractSources(results []SubTaskResult) []Source {
	seen := make(map[string]bool)
	var sources []Source

	add := func(src Source) {
		if src.URL == "" || seen[src.URL] {
			return
		}
		seen[src.URL] = true
		src.Domain = domainOf(src.URL)
		sources = append(sources, src)
	}

	for _, res := range results {
		for _, hit := range res.SearchResults {
			context := hit.Snippet
			if r := []rune(context); len(r) > snippetContextLimit {
				context = string(r[:snippetContextLimit])
			}
			add(Source{URL: hit.URL, Title: hit.Title, Context: context})
		}
		if res.Evaluation == nil {
			continue
		}
		for _, u := range res.Evaluation.CredibleSources {
			add(Source{
				URL:     u,
				Title:   fmt.Sprintf("Source from %s", res.AgentID),
				Context: "Credible source identified by subagent",
			})
		}
	}
	return sources
}

func formatSources(sources []Source) string {
	var b strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] %s (%s)\n", i, src.Title, src.URL)
	}
	return b.String()
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
