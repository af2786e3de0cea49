package diarization

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/monadical-sas/reflector/internal/audio"
	"github.com/monadical-sas/reflector/internal/external/llm"
)

// topicChunkWords is the approximate chunk size detect_topics slices the
// word-timeline into.
const topicChunkWords = 300

type topicsOutput struct {
	workflowContext
	Words  []audio.Word `json:"words"`
	Topics []topic      `json:"topics"`
}

const topicResponseSchema = `{"type":"object","properties":{"title":{"type":"string"},"summary":{"type":"string"}},"required":["title","summary"]}`

type topicLLMResponse struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// detectTopics slices the word-timeline into ~300-word chunks and asks
// the LLM for a title/summary per chunk, covering the timeline without
// overlap. Zero words skips the LLM entirely, the zero-track/zero-word
// edge case.
func (s *Services) detectTopics(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[mergeOutput](input)
	if err != nil {
		return nil, err
	}

	topics, err := s.detectTopicsFromWords(ctx, in.Words)
	if err != nil {
		return nil, err
	}
	return encodeMap(topicsOutput{workflowContext: in.workflowContext, Words: in.Words, Topics: topics})
}

// detectTopicsFromWords is detectTopics' chunk-and-summarize core,
// factored out so cleanupConsent can re-derive topics from a
// word-timeline that has had a declined speaker's words removed.
func (s *Services) detectTopicsFromWords(ctx context.Context, words []audio.Word) ([]topic, error) {
	if len(words) == 0 {
		return nil, nil
	}

	var topics []topic
	for start := 0; start < len(words); start += topicChunkWords {
		end := start + topicChunkWords
		if end > len(words) {
			end = len(words)
		}
		chunk := words[start:end]

		var text strings.Builder
		for i, w := range chunk {
			if i > 0 {
				text.WriteByte(' ')
			}
			text.WriteString(w.Text)
		}

		result, err := s.Generator.Generate(ctx, llm.GenerateRequest{
			SystemPrompt:   "Summarize this meeting transcript chunk with a short title and one-sentence summary, as JSON.",
			UserPrompt:     text.String(),
			ResponseSchema: topicResponseSchema,
		})
		if err != nil {
			return nil, fmt.Errorf("detect_topics: chunk at word %d: %w", start, err)
		}

		var resp topicLLMResponse
		if err := json.Unmarshal([]byte(result.Text), &resp); err != nil {
			return nil, fmt.Errorf("detect_topics: parse chunk response: %w", err)
		}

		topics = append(topics, topic{
			ID:        uuid.NewString(),
			Name:      resp.Title,
			Summary:   resp.Summary,
			Timestamp: chunk[0].Start,
			Duration:  chunk[len(chunk)-1].End - chunk[0].Start,
		})
	}

	return topics, nil
}

type titleOutput struct {
	workflowContext
	Words  []audio.Word `json:"words"`
	Topics []topic      `json:"topics"`
	Title  string       `json:"title"`
}

const titleResponseSchema = `{"type":"object","properties":{"title":{"type":"string"}},"required":["title"]}`

type titleLLMResponse struct {
	Title string `json:"title"`
}

// generateTitle produces the transcript-level title, cleaned per
// CleanTitle's rule.
func (s *Services) generateTitle(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[topicsOutput](input)
	if err != nil {
		return nil, err
	}

	out := titleOutput{workflowContext: in.workflowContext, Words: in.Words, Topics: in.Topics}
	if len(in.Words) == 0 {
		return encodeMap(out)
	}

	result, err := s.Generator.Generate(ctx, llm.GenerateRequest{
		SystemPrompt:   "Produce a meeting title of at most 10 words, as JSON.",
		UserPrompt:     topicsPrompt(in.Topics),
		ResponseSchema: titleResponseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("generate_title: %w", err)
	}

	var resp titleLLMResponse
	if err := json.Unmarshal([]byte(result.Text), &resp); err != nil {
		return nil, fmt.Errorf("generate_title: parse response: %w", err)
	}

	out.Title = audio.CleanTitle(resp.Title)
	return encodeMap(out)
}

type summaryOutput struct {
	workflowContext
	Words        []audio.Word `json:"words"`
	Topics       []topic      `json:"topics"`
	Title        string       `json:"title"`
	ShortSummary string       `json:"short_summary"`
	LongSummary  string       `json:"long_summary"`
	ActionItems  []string     `json:"action_items"`
}

const summaryResponseSchema = `{"type":"object","properties":{"short_summary":{"type":"string"},"long_summary":{"type":"string"},"action_items":{"type":"array","items":{"type":"string"}}},"required":["short_summary","long_summary","action_items"]}`

type summaryLLMResponse struct {
	ShortSummary string   `json:"short_summary"`
	LongSummary  string   `json:"long_summary"`
	ActionItems  []string `json:"action_items"`
}

// generateSummary produces the one-paragraph short summary, multi-
// paragraph long summary, and the structured action-item list.
func (s *Services) generateSummary(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[titleOutput](input)
	if err != nil {
		return nil, err
	}

	out := summaryOutput{workflowContext: in.workflowContext, Words: in.Words, Topics: in.Topics, Title: in.Title}
	if len(in.Words) == 0 {
		return encodeMap(out)
	}

	result, err := s.Generator.Generate(ctx, llm.GenerateRequest{
		SystemPrompt:   "Produce a short summary, a long multi-paragraph summary, and a list of action items for this meeting, as JSON.",
		UserPrompt:     topicsPrompt(in.Topics),
		ResponseSchema: summaryResponseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("generate_summary: %w", err)
	}

	var resp summaryLLMResponse
	if err := json.Unmarshal([]byte(result.Text), &resp); err != nil {
		return nil, fmt.Errorf("generate_summary: parse response: %w", err)
	}

	out.ShortSummary = resp.ShortSummary
	out.LongSummary = resp.LongSummary
	out.ActionItems = resp.ActionItems
	return encodeMap(out)
}

func topicsPrompt(topics []topic) string {
	var b strings.Builder
	for _, t := range topics {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Summary)
	}
	return b.String()
}
