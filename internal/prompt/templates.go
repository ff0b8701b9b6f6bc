package prompt

import (
	"strconv"
	"strings"
)

// Placeholder names shared by the templates below.
const (
	KeyExpertRole          = "EXPERT_ROLE"
	KeyTargetSubject       = "TARGET_SUBJECT"
	KeyTargetCategories    = "TARGET_CATEGORIES"
	KeyTargetOptions       = "TARGET_OPTIONS"
	KeyCategoryName        = "CATEGORY_NAME"
	KeyCategoryDescription = "CATEGORY_DESCRIPTION"
	KeyDomainContext       = "DOMAIN_CONTEXT_SECTION"
	KeyMalformedJSON       = "MALFORMED_JSON"
	KeyUserRequest         = "USER_REQUEST"
)

// CategoryTemplate asks for facet objects describing the subject.
const CategoryTemplate = `
# Overview
You are a category design assistant.
Take the perspective of a "{{EXPERT_ROLE}}" thinking about "{{TARGET_SUBJECT}}".
Propose the categories (facets) along which "{{TARGET_SUBJECT}}" can be specified or varied.

# Instructions
- Propose categories that materially improve the quality of "{{TARGET_SUBJECT}}".
- Actively include categories for style, tone, references and sources, since they keep the direction of "{{TARGET_SUBJECT}}" consistent.
- Include the fundamental categories a "{{EXPERT_ROLE}}" would always consider.
- Cover the subject from many angles so that choosing one option per category gives precise, reproducible control.
- Propose {{TARGET_CATEGORIES}} categories.
- Favour variety and quality of the categories.
{{DOMAIN_CONTEXT_SECTION}}
# Input
EXPERT_ROLE: {{EXPERT_ROLE}}
TARGET_SUBJECT: {{TARGET_SUBJECT}}

# Output format
Return exactly one JSON array in this shape:

[
  {
    "name": "category name",
    "description": "what the category controls and how it works as part of a prompt",
    "example_options": ["three", "typical", "options"]
  }
]

## Constraints
- Output JSON only.
- Do not add sentences such as "Sure, here is the output" and do not use markdown.
- Check that the JSON parses before replying and fix it if it does not.
`

// OptionTemplate asks for candidate values of a single category.
const OptionTemplate = `
# Overview
You are an option generation assistant.
Generate options for the category "{{CATEGORY_NAME}}" that a "{{EXPERT_ROLE}}" would consider when thinking about "{{TARGET_SUBJECT}}".

# Category
Name: {{CATEGORY_NAME}}
Description: {{CATEGORY_DESCRIPTION}}

# Instructions
- Generate concrete, diverse options that belong to "{{CATEGORY_NAME}}".
- Each option must directly contribute to the quality of "{{TARGET_SUBJECT}}" and be usable as written.
- Aim for about {{TARGET_OPTIONS}} options.
  - When the category is naturally bounded (for example days of the week or a five point rating), cover every value instead of padding to {{TARGET_OPTIONS}}.
- Spread options across different axes (positive and negative, attributes, formats, styles) and avoid near duplicates.
- Options become fragments of a prompt, so write natural phrases that make sense inside a prompt rather than bare keywords.

# Input
EXPERT_ROLE: {{EXPERT_ROLE}}
TARGET_SUBJECT: {{TARGET_SUBJECT}}
{{DOMAIN_CONTEXT_SECTION}}
# Output format
Return exactly one JSON array of strings:

[
  "option 1",
  "option 2",
  "option 3"
]

## Constraints
- Output JSON only.
- Do not add sentences such as "Sure, here is the output" and do not use markdown.
- Check that the JSON parses before replying and fix it if it does not.
`

// RepairTemplate asks the backend to correct JSON it produced earlier.
const RepairTemplate = `
The following text is supposed to be valid JSON but contains syntax errors.
Rewrite it as correctly formatted JSON with the same content.
Return only the corrected JSON. Do not add explanations or any other text.

Text to fix:
{{MALFORMED_JSON}}
`

// AnalysisTemplate extracts persona and subject from a free-form request.
const AnalysisTemplate = `
# Overview
You are a request analysis assistant and prompt engineer.
Assume a hypothetical generative AI that produces what the user below is asking for, and extract the information needed to build a prompt generator for it.

# Instructions
1. target_subject is the core deliverable itself, stated simply, without quantities, conditions or variations. Keep only conditions that are essential to what the deliverable is.
2. expert_role is the expert whose perspective best produces target_subject (for example "recipe developer", "SEO writer", "game designer").
3. ai_type_id is a short snake_case identifier for the kind of generative AI, one level more abstract than target_subject (for example "recipe_generation").
4. ai_type_description explains in one sentence what that AI does.
5. target_output_id is a snake_case identifier of target_subject itself (for example "curry_recipe_detail").
6. context describes the role, the task and the required quality, audience and format.
7. goal describes what the user wants to achieve, the conditions the output must meet and the benefit the user gets.

# User request
{{USER_REQUEST}}

# Output format
Return exactly one JSON object:

{
  "expert_role": "...",
  "target_subject": "...",
  "ai_type_id": "...",
  "ai_type_description": "...",
  "target_output_id": "...",
  "context": "...",
  "goal": "..."
}

## Constraints
- Output JSON only.
- Do not add sentences such as "Sure, here is the output" and do not use markdown.
`

// CategoryInput carries the values for CategoryTemplate.
type CategoryInput struct {
	ExpertRole    string
	TargetSubject string
	TargetCount   int
	DomainContext string
}

// Categories renders the category generation prompt.
func Categories(in CategoryInput) string {
	return Render(CategoryTemplate, map[string]string{
		KeyExpertRole:       in.ExpertRole,
		KeyTargetSubject:    in.TargetSubject,
		KeyTargetCategories: strconv.Itoa(in.TargetCount),
		KeyDomainContext:    categoryDomainSection(in.DomainContext),
	})
}

// OptionInput carries the values for OptionTemplate.
type OptionInput struct {
	ExpertRole          string
	TargetSubject       string
	CategoryName        string
	CategoryDescription string
	TargetCount         int
	DomainContext       string
}

// Options renders the option generation prompt for one category.
func Options(in OptionInput) string {
	return Render(OptionTemplate, map[string]string{
		KeyExpertRole:          in.ExpertRole,
		KeyTargetSubject:       in.TargetSubject,
		KeyCategoryName:        in.CategoryName,
		KeyCategoryDescription: in.CategoryDescription,
		KeyTargetOptions:       strconv.Itoa(in.TargetCount),
		KeyDomainContext:       optionDomainSection(in.DomainContext, in.TargetSubject, in.CategoryName),
	})
}

// Repair renders the JSON repair prompt.
func Repair(malformed string) string {
	return Render(RepairTemplate, map[string]string{KeyMalformedJSON: malformed})
}

// Analysis renders the request analysis prompt.
func Analysis(userRequest string) string {
	return Render(AnalysisTemplate, map[string]string{KeyUserRequest: userRequest})
}

func categoryDomainSection(domainContext string) string {
	domainContext = strings.TrimSpace(domainContext)
	if domainContext == "" {
		return ""
	}
	return "\n# Additional context\n" + domainContext + "\n\nTake these requests and constraints into account when proposing categories.\n"
}

func optionDomainSection(domainContext, subject, category string) string {
	domainContext = strings.TrimSpace(domainContext)
	if domainContext == "" {
		return ""
	}
	return "\n# Additional context (applies to the whole request)\n" + domainContext +
		"\n\n# Note\nThe context above concerns \"" + subject + "\" as a whole. " +
		"Use the parts relevant to the category \"" + category + "\" and ignore the rest.\n"
}
