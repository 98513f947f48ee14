// Package extract parses model responses into candidate Terraform payloads
// and clarifying questions. Extraction is a pure, stateless transform; an
// empty payload is a non-fatal "no code produced" outcome for the caller.
package extract

import (
	"regexp"
	"strings"
)

const (
	// maxQuestions caps how many clarifying questions are kept per response.
	maxQuestions = 10

	// minQuestionLength filters out fragments and code-like matches.
	minQuestionLength = 20
)

// Extraction is the result of parsing one model response.
type Extraction struct {
	// Code is the candidate Terraform payload, or empty when the response
	// contained no extractable code.
	Code string

	// Questions are clarifying questions the model asked, in response order.
	// Questions are extracted independently of whether code was found.
	Questions []string
}

// HasCode reports whether a candidate payload was found.
func (e Extraction) HasCode() bool { return e.Code != "" }

var (
	// Fenced blocks tagged terraform/hcl are preferred; bare fences are the
	// fallback. A block only counts if it looks like Terraform.
	taggedFenceRe = regexp.MustCompile("(?s)```(?:terraform|hcl)\\s*\n(.*?)\n```")
	bareFenceRe   = regexp.MustCompile("(?s)```\\s*\n(.*?)\n```")

	questionRe = regexp.MustCompile(`[^.!?\n]+\?+`)
)

// Parse extracts the candidate code payload and clarifying questions from a
// raw model response.
func Parse(response string) Extraction {
	return Extraction{
		Code:      extractCode(response),
		Questions: extractQuestions(response),
	}
}

// extractCode finds the first substantial Terraform block in the response.
func extractCode(response string) string {
	for _, re := range []*regexp.Regexp{taggedFenceRe, bareFenceRe} {
		for _, match := range re.FindAllStringSubmatch(response, -1) {
			block := strings.TrimSpace(match[1])
			if looksLikeTerraform(block) {
				return block
			}
		}
	}

	// No usable fence: some models emit bare HCL. Scan from the provider or
	// terraform block to the first prose terminator.
	if strings.Contains(response, `provider "xenorchestra"`) {
		return extractBareCode(response)
	}

	return ""
}

// looksLikeTerraform filters out shell snippets and prose inside fences.
func looksLikeTerraform(block string) bool {
	lowered := strings.ToLower(block)
	return strings.Contains(lowered, "provider") || strings.Contains(lowered, "resource")
}

// extractBareCode collects lines from the start of an unfenced HCL section
// until a line that reads like trailing prose.
func extractBareCode(response string) string {
	var (
		lines   []string
		inBlock bool
	)

	for _, line := range strings.Split(response, "\n") {
		if strings.Contains(line, `provider "xenorchestra"`) || strings.Contains(line, "terraform {") {
			inBlock = true
		}
		if !inBlock {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") && isProseTerminator(line) {
			break
		}

		lines = append(lines, line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isProseTerminator(line string) bool {
	for _, marker := range []string{"If you have", "Note:", "Make sure", "Remember"} {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// extractQuestions collects sentences ending in a question mark, skipping
// short fragments and fenced code.
func extractQuestions(response string) []string {
	var questions []string
	for _, match := range questionRe.FindAllString(response, -1) {
		q := strings.TrimSpace(match)
		if len(q) <= minQuestionLength || strings.HasPrefix(q, "```") {
			continue
		}
		questions = append(questions, q)
		if len(questions) == maxQuestions {
			break
		}
	}
	return questions
}
