// Package llm is the thin client for the LLM backend behind the
// Generator capability interface: gRPC transport, a stream-draining
// goroutine, and proto conversion helpers. The diarization workflow's
// LLM steps (detect_topics, generate_title, generate_summary,
// action items) are single-turn text generations, not multi-turn
// tool-calling agent loops, so there is no conversation history or
// tool-call plumbing here.
package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/monadical-sas/reflector/internal/dag"
	reflectorpb "github.com/monadical-sas/reflector/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GenerateRequest is one single-turn LLM call.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	// ResponseSchema, when set, is a JSON Schema the model's output must
	// conform to (topic/title/summary/action-item extraction all request
	// structured output this way); empty means free text.
	ResponseSchema string
	Model          string
}

// GenerateResult is the LLM's full response, after stream draining.
type GenerateResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Generator is the capability interface the topic-detection, title, and
// summary steps depend on.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// GRPCGenerator implements Generator by calling the Python LLM service
// over gRPC.
type GRPCGenerator struct {
	conn   *grpc.ClientConn
	client reflectorpb.GenerationServiceClient
}

// NewGRPCGenerator dials addr with insecure (plaintext) transport — the LLM
// service is expected to run as a sidecar or on localhost.
func NewGRPCGenerator(addr string) (*GRPCGenerator, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("llm: create client for %s: %w", addr, err)
	}
	return &GRPCGenerator{conn: conn, client: reflectorpb.NewGenerationServiceClient(conn)}, nil
}

// Close releases the gRPC connection.
func (c *GRPCGenerator) Close() error { return c.conn.Close() }

// Generate sends a single-turn prompt and drains the chunk stream into one
// result. A classified error is returned on failure; the caller (a DAG
// task) is responsible for retrying via internal/dag, not this client.
func (c *GRPCGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	stream, err := c.client.Generate(ctx, &reflectorpb.GenerateRequest{
		SystemPrompt:   req.SystemPrompt,
		UserPrompt:     req.UserPrompt,
		ResponseSchema: req.ResponseSchema,
		Model:          req.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: generate call failed: %w", err)
	}

	result := &GenerateResult{}
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return nil, fmt.Errorf("llm: stream recv: %w", err)
		}
		switch c := chunk.Chunk.(type) {
		case *reflectorpb.GenerateChunk_Text:
			result.Text += c.Text.Content
		case *reflectorpb.GenerateChunk_Usage:
			result.InputTokens += int(c.Usage.InputTokens)
			result.OutputTokens += int(c.Usage.OutputTokens)
		case *reflectorpb.GenerateChunk_Error:
			if c.Error.Retryable {
				return nil, &dag.HTTPStatusError{StatusCode: 503, Err: fmt.Errorf("llm: %s", c.Error.Message)}
			}
			return nil, fmt.Errorf("llm: %s", c.Error.Message)
		}
	}
}
