// SPDX-License-Identifier: AGPL-3.0-or-later

package examiner

import (
	"fmt"
	"strings"

	"github.com/bartekus/gitexam/internal/exam"
)

// promptVersion identifies the delegating prompt templates for transcript
// provenance. Bump when the wording below changes in a grading-relevant way.
const promptVersion = "delegate/0.1"

func buildGeneratePrompt(ec *exam.Context) string {
	var b strings.Builder
	b.WriteString("You generate a git \"Proof-of-Understanding\" exam tailored to a specific diff.\n")
	b.WriteString("Use ONLY the provided context; do not run commands, read files, or assume details not present.\n")
	b.WriteString("Return ONLY a JSON object matching the provided JSON Schema.\n\n")

	b.WriteString("Requirements:\n")
	b.WriteString("- 8 questions total (unless the diff is tiny; then >=4).\n")
	b.WriteString("- Cover these categories at least once each: " + strings.Join(exam.Categories, ", ") + ".\n")
	b.WriteString("- Make questions diff-aware: mention concrete files/functions/behaviors present in the diff.\n")
	b.WriteString("- Include at least 3 multiple-choice questions by providing a `choices` array with 4 options.\n")
	b.WriteString("- Multiple-choice questions should be answerable with A/B/C/D.\n")
	b.WriteString("- At least one question should probe an alternative approach and ask why it was not chosen.\n\n")

	writeContext(&b, ec)
	return b.String()
}

func buildJudgePrompt(ec *exam.Context, e *exam.Exam, a *exam.Answers) string {
	var b strings.Builder
	b.WriteString("You are a strict grader for a git \"Proof-of-Understanding\" exam.\n")
	b.WriteString("Use ONLY the provided context; do not run commands, read files, or assume details not present.\n")
	b.WriteString("Return ONLY a JSON object matching the provided JSON Schema.\n\n")

	b.WriteString("Grading rubric:\n")
	b.WriteString("- completeness: 0..1 based on how well the answer addresses the question (0 if empty).\n")
	b.WriteString("- specificity: 0..1 based on concrete references to what changed (files/functions/behaviors in the diff), not generic boilerplate.\n")
	b.WriteString("- score: 0..1 overall for the question; recommended weighting: 0.45*completeness + 0.45*specificity + 0.10*category_relevance.\n")
	b.WriteString("- notes: short bullet-like strings explaining missing specifics or inaccuracies.\n")
	b.WriteString("- hallucination_flags: conservative flags for claims not supported by the diff (esp. files/modules not in changed_files).\n\n")

	writeContext(&b, ec)

	b.WriteString("questions_and_answers:\n")
	for _, q := range e.Questions {
		fmt.Fprintf(&b, "\n[id=%s] [category=%s] prompt: %s\n", q.ID, q.Category, q.Prompt)
		for i, choice := range q.Choices {
			fmt.Fprintf(&b, "  %c) %s\n", 'A'+i, choice)
		}
		b.WriteString("answer:\n")
		b.WriteString(a.Get(q.ID))
		b.WriteString("\n")
	}
	return b.String()
}

func writeContext(b *strings.Builder, ec *exam.Context) {
	b.WriteString("changed_files:\n")
	for _, f := range ec.ChangedFiles {
		b.WriteString("- " + f + "\n")
	}
	b.WriteString("\ndiff_redacted (may be truncated):\n-----\n")
	b.WriteString(ec.Diff)
	b.WriteString("\n-----\n\n")
}
