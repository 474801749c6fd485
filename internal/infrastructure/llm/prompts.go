package llm

import (
	"fmt"

	"ArticleEnricher/internal/domain"
)

const difficultySystemPrompt = `You grade English reading passages for Chinese learners. Output only JSON.`

const difficultyUserPrompt = `Assign the passage below to exactly one reading tier.
Tiers: "Initial" (high school), "Intermediate" (CET-4), "Upper-Intermediate" (CET-6 or postgraduate entrance), "Advanced" (IELTS, TOEFL or beyond).
Respond with {"difficulty": "<tier>"} and nothing else.

Text:
%s`

const vocabularySystemPrompt = `You are an expert linguist and English tutor. You are a strict JSON outputting assistant.`

const vocabularyUserPrompt = `Analyze the following text. %s

Task:
1. Tokenize the entire text into a linear list of tokens (words and punctuation), in order, skipping nothing.
2. Give every token a "type":
   - "normal": words, phrases or idioms that are clearly understood at this level.
   - "attention": difficult, new or important words, phrases or idioms at this level.
   - "punctuation": punctuation marks.
3. For "normal" and "attention" tokens give a concise Chinese "definition" and the "context_meaning" in this sentence.
   Punctuation tokens have empty "definition" and "context_meaning".
4. A multi-word item (for example "turn on" or "rip open") gets one unique integer "group_id" shared by all of its tokens, and all of them share one type.
   Only the FIRST token of a group carries "definition" and "context_meaning", describing the whole phrase; later tokens of the group use "".
   Tokens outside any group use "group_id": null.
5. A line holding only the character ¶ separates paragraphs. Emit it as its own token {"text": "¶", "type": "punctuation", "definition": "", "context_meaning": "", "group_id": null}. Groups never span it.

Respond with {"tokens": [{"text": "...", "type": "...", "definition": "...", "context_meaning": "...", "group_id": null}]}.

Text:
%s`

const translationSystemPrompt = `You are a professional translator. Output only JSON.`

const translationUserPrompt = `Translate the following English paragraph into fluent, natural Chinese.
Respond with a JSON object:
{"translation": "natural chinese translation", "style": "description of the writing style", "key_phrases": [{"en": "phrase", "cn": "chinese equivalent"}]}
Do not output markdown or explanations outside the JSON.

Text:
%s`

const syntaxSystemPrompt = `You are a grammar expert. Output only JSON.`

const syntaxUserPrompt = `Analyze the syntax of the following English paragraph for an English learner.
Respond with a JSON object:
{"structures": [{"pattern": "S-V-O (主谓宾)", "content": "example from text", "explanation": "chinese explanation"}],
 "clauses": [{"type": "Relative clause (定语从句)", "content": "...", "explanation": "..."}],
 "grammar_points": [{"point": "Present Perfect", "point_cn": "现在完成时", "explanation": "how it is used in this text"}]}
Only include grammar points that are actually used in the text, and refer to the specific instance in every explanation.

Text:
%s`

func levelInstruction(tier domain.Difficulty) string {
	switch tier {
	case domain.DifficultyInitial:
		return "Target: high school level (CEFR B2)."
	case domain.DifficultyIntermediate:
		return "Target: CET-4 level (CEFR B2+)."
	case domain.DifficultyUpperIntermediate:
		return "Target: CET-6 or postgraduate entrance level (CEFR C1)."
	case domain.DifficultyAdvanced:
		return "Target: IELTS band 7 or above."
	default:
		return "Target: advanced learner."
	}
}

func vocabularyPrompt(text string, tier domain.Difficulty) string {
	return fmt.Sprintf(vocabularyUserPrompt, levelInstruction(tier), text)
}
