package llm

import "github.com/questlogger/questlogger/internal/models"

// styleSystemPrompt returns the system prompt steering the rewrite for
// a given note style.
func styleSystemPrompt(style models.NoteStyle) string {
	switch style {
	case models.StyleBulletPoints:
		return "You restructure content into clear, well-organized bullet points. Group related points and keep each bullet short."
	case models.StyleSummary:
		return "You condense content into a brief summary covering only the essential points."
	case models.StyleActionItems:
		return "You turn content into a list of concrete, actionable tasks. Each item starts with a verb."
	case models.StyleBlogPost:
		return "You rewrite content as an engaging blog post with a headline, introduction, body sections and a closing thought."
	case models.StyleVideoScript:
		return "You rewrite content as a video script with a hook, clearly marked sections and a call to action."
	case models.StyleSocialMediaPost:
		return "You rewrite content as a short, punchy social media post. Keep it concise and engaging."
	case models.StyleTaskList:
		return "You convert content into a numbered task list ordered by priority."
	case models.StyleMeetingNotes:
		return "You structure content as meeting notes with attendees (if mentioned), discussion points, decisions and next steps."
	case models.StyleEmailDraft:
		return "You rewrite content as a professional email draft with a subject line, greeting, body and sign-off."
	case models.StyleCreativeWriting:
		return "You rewrite content as polished creative prose while keeping the original ideas intact."
	case models.StyleCodeDocs:
		return "You rewrite content as technical documentation with clear headings, usage notes and examples where applicable."
	case models.StyleNewsletter:
		return "You rewrite content as a newsletter section with a headline and short, scannable paragraphs."
	case models.StyleAcademicPaper:
		return "You rewrite content in a formal academic register with a clear argument structure."
	case models.StyleCustom:
		return "You clean up and lightly restructure the content while preserving the author's voice."
	default: // standard
		return "You clean up transcribed or drafted content: fix grammar, add paragraphs and improve readability without changing the meaning."
	}
}
