// Package prompts holds the fixed prompt text sent to the generative API and
// the per-analysis-type user prompt templates. Everything here is pure:
// template selection plus literal placeholder substitution, no I/O.
package prompts

import (
	"strings"

	"github.com/growthlens/go-growth-backend/internal/domain"
)

// SystemPrompt is sent unmodified as the system message on every request.
const SystemPrompt = `You are GrokXBoost, an elite X/Twitter growth analyst with Grok's signature wit and truth-seeking style. You have access to real-time X data via x_search tools.

When analyzing an X handle:
1. Use x_search to find the user's recent posts (last 20-30)
2. Analyze engagement patterns (likes, retweets, replies, views)
3. Identify their best-performing content themes and formats
4. Note posting frequency and optimal times
5. Assess audience engagement quality

Deliver your analysis in this format:

## 📊 Account Snapshot
[Quick stats: follower estimate, posting frequency, engagement rate assessment]

## 🔥 What's Working
[Top 3-5 strengths with specific examples from their posts]

## 🎯 Growth Opportunities
[Top 3-5 actionable improvements, be specific and direct]

## 💡 Content Ideas
[5 specific post/thread ideas tailored to their niche and style]

## 📈 30-Day Action Plan
[Prioritized weekly actions to boost growth]

Be brutally honest but constructive. Use data from x_search to back up claims. Include specific examples from their actual posts. Inject personality - be witty, provocative, and memorable. No generic advice.`

// analysisPrompts maps each analysis type to its user prompt template.
// Templates use {handle} and {competitor} placeholders.
var analysisPrompts = map[domain.AnalysisType]string{
	domain.AnalysisFullAudit: `Perform a comprehensive growth audit for the X account @{handle}. Analyze their overall presence, engagement metrics, content strategy, and growth potential. Cover all aspects: strengths, weaknesses, opportunities, and provide a detailed action plan.`,

	domain.AnalysisContentStrategy: `Focus specifically on content strategy analysis for @{handle}. Examine their:
- Content themes and topics that resonate most
- Post formats (text, images, threads, videos) and their performance
- Tone and voice consistency
- Hook effectiveness in first lines
- Call-to-actions usage
- Thread structure and storytelling
Provide specific content recommendations and post templates they should use.`,

	domain.AnalysisEngagement: `Deep dive into engagement patterns for @{handle}. Analyze:
- Reply and conversation patterns
- Community building efforts
- Engagement rate by post type
- Best performing times and days
- Audience quality and interaction depth
- Viral moments and what triggered them
Provide strategies to boost meaningful engagement.`,

	domain.AnalysisCompetitor: `Compare @{handle} with their competitor @{competitor}. Analyze:
- Follower growth trajectories
- Content strategy differences
- Engagement rate comparisons
- Unique strengths of each account
- What @{handle} can learn from @{competitor}
- Gaps and opportunities @{handle} can exploit
Be specific with examples from both accounts.`,
}

// BuildUserPrompt renders the template for the given analysis type with all
// {handle} occurrences replaced, and {competitor} replaced when the type is
// a competitor comparison. Unknown analysis types fall back to the full
// growth audit template so the function stays total.
func BuildUserPrompt(handle string, analysisType domain.AnalysisType, competitorHandle string) string {
	tpl, ok := analysisPrompts[analysisType]
	if !ok {
		tpl = analysisPrompts[domain.AnalysisFullAudit]
	}

	prompt := strings.ReplaceAll(tpl, "{handle}", handle)
	if competitorHandle != "" && analysisType == domain.AnalysisCompetitor {
		prompt = strings.ReplaceAll(prompt, "{competitor}", competitorHandle)
	}
	return prompt
}
