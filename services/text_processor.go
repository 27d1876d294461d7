package services

import (
	"strings"
	"unicode"
)

// TextProcessor splits scene narration into subtitle lines and estimates spoken duration
type TextProcessor struct {
	AvgWordsPerMinute float64 // Default: 150 words per minute
	MaxSubtitleLength int     // Default: 84 chars, two lines of 42
}

// NewTextProcessor creates a new text processor
func NewTextProcessor() *TextProcessor {
	return &TextProcessor{
		AvgWordsPerMinute: 150.0,
		MaxSubtitleLength: 84,
	}
}

// SplitForSubtitles splits narration into chunks where each chunk is one subtitle cue.
// Prioritizes readability and sentence boundaries.
func (tp *TextProcessor) SplitForSubtitles(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}

	chunks := []string{}
	sentences := tp.splitIntoSentences(text)

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) <= tp.MaxSubtitleLength {
			chunks = append(chunks, sentence)
			continue
		}

		// Sentence too long, split by clauses (comma, semicolon)
		subChunks := tp.splitByClauses(sentence, tp.MaxSubtitleLength)
		chunks = append(chunks, subChunks...)
	}

	return chunks
}

// splitByClauses splits a long sentence by punctuation (comma, semicolon) or words if needed
func (tp *TextProcessor) splitByClauses(text string, limit int) []string {
	chunks := []string{}

	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';'
	})

	current := ""
	for i, part := range parts {
		part = strings.TrimSpace(part)

		// Put the comma back on every part but the last
		suffix := ""
		if i < len(parts)-1 {
			suffix = ","
		}

		if len(current)+len(part)+len(suffix)+1 <= limit {
			if current != "" {
				current += " " + part + suffix
			} else {
				current = part + suffix
			}
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
		}
		if len(part+suffix) > limit {
			chunks = append(chunks, tp.splitAtWords(part+suffix, limit)...)
			current = ""
		} else {
			current = part + suffix
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitAtWords breaks text at the last space before limit, hard-splitting words longer than limit
func (tp *TextProcessor) splitAtWords(text string, limit int) []string {
	var chunks []string
	remaining := text

	for len(remaining) > limit {
		splitIdx := strings.LastIndex(remaining[:limit], " ")
		if splitIdx <= 0 {
			splitIdx = limit
		}

		if chunk := strings.TrimSpace(remaining[:splitIdx]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimSpace(remaining[splitIdx:])
	}

	if remaining != "" {
		chunks = append(chunks, remaining)
	}

	return chunks
}

// EstimateDuration estimates how long it takes to speak the text, in seconds
func (tp *TextProcessor) EstimateDuration(text string) float64 {
	wordCount := tp.countWords(text)
	if wordCount == 0 {
		return 0.0
	}

	durationSeconds := float64(wordCount) / tp.AvgWordsPerMinute * 60.0

	// Add 10% buffer for natural pauses
	return durationSeconds * 1.1
}

// countWords counts the number of words in text
func (tp *TextProcessor) countWords(text string) int {
	return len(strings.Fields(text))
}

// splitIntoSentences splits text into individual sentences
func (tp *TextProcessor) splitIntoSentences(text string) []string {
	sentences := []string{}
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		// Look ahead to avoid splitting on abbreviations and decimals
		if tp.isSentenceEnding(runes[i]) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if sentence := strings.TrimSpace(current.String()); sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}

	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}

	return sentences
}

// isSentenceEnding checks if character is a sentence ending
func (tp *TextProcessor) isSentenceEnding(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？'
}
