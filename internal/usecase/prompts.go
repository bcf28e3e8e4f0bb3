package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"essaygenius/internal/domain/model"
)

// Prompt templates for the generation pipeline. Each stage is one isolated
// completion call; whatever context it needs travels in the prompt.

const outlineSystemPrompt = `You are an expert at creating well-structured essay outlines.
Create a logical outline with main ideas and subtopics that would work well for the given paper.

Structure the outline following academic conventions:
- Begin with an introduction section that presents a compelling thesis statement
- Include body sections with clear main ideas that support the thesis
- End with a conclusion section that synthesizes the arguments

For each main idea, write a complete sentence that begins with an instruction like "Discuss..." or "Analyze..." or "Examine..." that clearly explains what should be covered in this major section.

For each subtopic, write a complete 1-2 sentence instruction that:
- Begins with a directive verb (e.g., "Explore...", "Investigate...", "Compare...", "Evaluate...")
- Provides specific guidance on what to write about in that subsection
- Suggests particular examples, data points, or arguments to include
- Connects to the overall thesis where appropriate

Write as if you are providing instructions to a college student who will be writing this paper.
Your outline should demonstrate depth of thought and sophisticated understanding of the subject matter.

Respond with a JSON object of the shape {"outline_components": [{"main_idea": "...", "subtopics": ["..."]}]}.`

// previousEssayLimit caps how much of the sample essay rides along in the
// outline prompt.
const previousEssayLimit = 1000

func outlinePrompt(req model.OutlineRequest) string {
	previous := truncate(req.PreviousEssay, previousEssayLimit)
	return fmt.Sprintf(`Please generate an outline for the following paper that has %d words.

Based on the number of words, please generate an outline with the appropriate number of sections.

The outline should use the assignment description to fine-tune the outline to the specific requirements of the assignment.

If a previous essay is provided, please use it to fine-tune the outline to the specific patterns of the previous essay.

Please use the writing style to make sure the outline is constructed in the correct tone and style.

Title:
%s
Description:
%s
Number of words:
%d
Previous essay:
%s
Writing style:
%s`, req.WordCount, req.Topic, req.AssignmentDescription, req.WordCount, previous, req.WritingStyle)
}

const styleAnalysisSystemPrompt = `You are an expert writing analyst.
Analyze the provided essay sample and extract key characteristics of the writing style, including:

1. Voice and tone (formal, casual, persuasive, etc.)
2. Sentence structure patterns (simple, complex, varied, etc.)
3. Vocabulary preferences (sophisticated, plain, technical, etc.)
4. Paragraph organization patterns
5. Transition word usage
6. Common phrases or expressions
7. Argumentative structures or rhetorical devices used

Provide a concise summary that could guide creating new content that mimics this writing style.`

func sourceSearchSystemPrompt(n int) string {
	return fmt.Sprintf(`You are a research librarian with expertise in finding relevant academic sources.
For the given topic, search for %d high-quality academic sources that would be valuable for a college-level paper.
Focus on peer-reviewed journal articles, books from reputable publishers, and reports from established organizations.
Only pick sources that have a clear author and publication year.`, n)
}

func sourceParseSystemPrompt(n int, format model.CitationFormat) string {
	var field, example string
	switch format {
	case model.CitationMLA:
		field = "MLA citation"
		example = `Author's Last Name, First Name. "Title of Article." Title of Journal, Volume, Issue, Year, Pages. Database, DOI or URL.`
	case model.CitationChicago:
		field = "Chicago citation"
		example = `Author's Last Name, First Name. "Title of Article." Title of Journal Volume, no. Issue (Year): Pages. DOI or URL.`
	case model.CitationHarvard:
		field = "Harvard citation"
		example = `Author's Last Name, Initials. (Year) 'Title of article', Title of Journal, Volume(Issue), Pages. DOI or URL.`
	default:
		field = "APA citation"
		example = `Author, A. A., & Author, B. B. (Year). Title of article. Title of Journal, volume number(issue number), page range. URL.`
	}
	return fmt.Sprintf(`You are a research assistant who organizes bibliographic information.
Parse the following search results into a structured format with %d sources.
For each source, extract:
1. Title
2. Author(s)
3. Publication information (journal/publisher, year, volume, etc.)
4. Author last name
5. Publication year
6. URL if available
7. A brief explanation of how this source is relevant to the topic
8. %s of the source. Put the proper citation in the format of: %s
9. Details about the source (e.g. abstract, summary, etc.). Include specific details about the source that would be helpful for a college level paper.

If any information is missing, make a reasonable inference but don't fabricate specific details.

Respond with a JSON object of the shape {"sources": [{"title": "...", "author": "...", "author_last_name": "...", "publication_year": 2020, "publication_info": "...", "url": "...", "citation": "...", "relevance": "...", "details": "..."}]}.`, n, field, example)
}

// componentSearchTopic flattens one outline component into the query given to
// the source search stage.
func componentSearchTopic(c model.OutlineComponent) string {
	var b strings.Builder
	b.WriteString("Main Idea: ")
	b.WriteString(c.MainIdea)
	b.WriteString("\nSupporting Points:\n")
	for _, point := range c.Subtopics {
		b.WriteString(point)
		b.WriteString("\n")
	}
	return b.String()
}

const draftSystemPrompt = `You are a helpful assistant that writes essays. You avoid surface-level analysis and text that sounds AI-generated.
You speak in a human-like tone that is appropriate for an academic paper. You avoid repeating ideas or words unless referencing a previous section or source.

To avoid sounding AI-generated, you avoid using the following transitional words and opt for simpler, more natural alternatives:

Accordingly, additionally, arguably, certainly, consequently, hence, however, indeed, moreover, nevertheless, nonetheless, notwithstanding, thus, undoubtedly.

You also avoid using the following adjectives and opt for simpler, more natural alternatives:

Adept, commendable, dynamic, efficient, ever-evolving, exciting, exemplary, innovative, invaluable, robust, seamless, synergistic, thought-provoking, transformative, utmost, vibrant, vital.

You also avoid the following nouns and opt for more natural, contextually appropriate alternatives:

Efficiency, innovation, institution, integration, implementation, landscape, optimization, realm, tapestry, transformation

You also avoid using the following verbs and opt for more natural alternatives:

Aligns, augment, delve, embark, facilitate, implement, integrate, leverage, optimize, streamline, transform, weave, maximize, underscores, utilize

You also avoid using the following phrases:

A testament to, in conclusion, in summary, it's important to note, it's important to consider, it's worth noting that, on the contrary, on the other hand,

You also avoid:
- Overly complex sentence structure
- An unusually formal tone
- Unnecessarily long, flowery, and wordy language
- Vague statements`

const refineSystemPrompt = `You are a helpful assistant that writes essays. You avoid surface-level analysis and text that sounds AI-generated.
You speak in a human-like tone that is appropriate for an academic paper. You avoid repeating ideas or words unless referencing a previous section or source.`

func sectionPrompt(req model.EssayRequest, section model.OutlineComponent, isIntroduction, isConclusion bool) string {
	sections := len(req.Outline.Components)
	if sections == 0 {
		sections = 1
	}
	estimated := req.WordCount / sections

	var specific string
	if isIntroduction {
		specific = `- This is the introduction section.
- Include a clear thesis statement that communicates the main idea of the essay.`
	} else if isConclusion {
		specific = `- This is the conclusion section.
- Do not introduce new ideas or information.
- Wrap up the essay and restate the thesis statement.`
	}

	return fmt.Sprintf(`Write a section of a paper. This section should be several paragraphs long and flow naturally. The word count should be %d words.

Main idea to cover in this section: %s

Key points that must be addressed:
%s

Sources:
%s

Writing style:
%s

%s

Important:
- Do not use bullet points or markdown
- Do not use section headers or titles
- Do not use text that sounds AI-generated, such as overly verbose or overly formal language or text that is commonly used in AI-generated text.
- Unless otherwise specified, do not use transitions like "In conclusion" or "In summary" or "To summarize."
- Do not repeat ideas or words unless referencing a previous section or source.
- Please use specific examples and details to support your points.
- Do not use overly complex words or phrases. Stick to a 10th grade vocabulary.
- Include appropriate transitions between paragraphs
- Include in-text citations where appropriate. If the author is not provided or listed as "Unknown", use the source title and page number. Do not overuse in-text citations. Aim to include just 1-2 citations for the whole section. Only include the most appropriate sources. If no sources are given, do not include any citations.
- Each paragraph should be 4-6 sentences long`,
		estimated, section.MainIdea, strings.Join(section.Subtopics, " "),
		summarizeSources(req.Sources), req.WritingAnalysis, specific)
}

func refinePrompt(previousSection, sectionText string, wordCount, sections int) string {
	if sections == 0 {
		sections = 1
	}
	estimated := wordCount / sections
	return fmt.Sprintf(`Refine the following section of a paper.

Previous section:
%s

Section:
%s

Estimated word count:
%d

Please make sure the section is approximately %d words long.

Please ensure that the section is not too similar to the previous section and doesn't restate the same ideas or points unless referencing back to the previous section.

Please ensure that the section doesn't sound AI-generated or use overly complex sentence structure or overly formal language.

If the language is too complex, simplify it to sound more natural. Please keep the in-text citations.

Write in a human-like tone that is appropriate for an academic paper. Return the refined section in the same format as the original section with the same paragraph breaks.

Ensure that the text doesn't exceedingly use in-text citations. There should only be 2 to 3 citations in total.

Do not include any markdown formatting (including bolding symbols such as * or **) or bullet points or section headers or titles.`,
		previousSection, sectionText, estimated, estimated)
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func summarizeSources(sources []model.Source) string {
	var b strings.Builder
	for _, s := range sources {
		fmt.Fprintf(&b, "- %s by %s (%d), %s. %s\n", s.Title, s.Author, s.PublicationYear, s.PublicationInfo, s.Details)
	}
	return b.String()
}
