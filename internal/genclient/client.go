// Package genclient adapts the Gemini API into the single call the job
// engine needs: one immutable request in, one ordered artifact set or one
// classified error out. The client holds no job identity or retry state.
package genclient

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nanobanan/banana/internal/db/models"
	"github.com/nanobanan/banana/internal/logger"
)

// Request carries the immutable parameter snapshot of one job. For edits,
// InputData holds the resolved source image bytes.
type Request struct {
	Prompt      string
	Model       string
	AspectRatio string
	Size        string
	NumImages   int
	InputData   []byte
	InputMIME   string
}

// RequestFromJob translates a job's persisted snapshot into a client request.
func RequestFromJob(job *models.Job) (Request, error) {
	req := Request{
		Prompt:      job.Prompt,
		Model:       job.Params.Model,
		AspectRatio: job.Params.AspectRatio,
		Size:        job.Params.Size,
		NumImages:   job.Params.NumImages,
		InputMIME:   job.Params.InputMIME,
	}
	if job.Params.InputData != "" {
		data, err := base64.StdEncoding.DecodeString(job.Params.InputData)
		if err != nil {
			return Request{}, &ClassifiedError{
				Kind:    models.ErrorKindPermanent,
				Message: fmt.Sprintf("invalid source image data: %v", err),
				Err:     err,
			}
		}
		req.InputData = data
	}
	return req, nil
}

// Client issues generation calls against the Gemini API
type Client struct {
	client *genai.Client
}

// New creates a Gemini-backed generation client
func New(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, &ClassifiedError{
			Kind:    models.ErrorKindPermanent,
			Message: "API key not configured; set GEMINI_API_KEY or run: banana config set api.key <your-key>",
		}
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

// Close releases the underlying API connection
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Generate performs one generation or edit call and returns the produced
// artifacts. Failures come back as *ClassifiedError.
func (c *Client) Generate(ctx context.Context, req Request) ([]models.Image, error) {
	model := c.client.GenerativeModel(req.Model)

	var parts []genai.Part
	if len(req.InputData) > 0 {
		parts = append(parts, genai.Blob{MIMEType: req.InputMIME, Data: req.InputData})
	}
	parts = append(parts, genai.Text(renderPrompt(req)))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, classify(err)
	}
	return extractImages(resp)
}

// renderPrompt folds the rendering parameters into the prompt text. The SDK
// does not expose the image generation config of the REST API, so the
// aspect ratio and size travel as instructions.
func renderPrompt(req Request) string {
	prompt := req.Prompt
	if req.AspectRatio != "" {
		prompt += fmt.Sprintf("\n\nRender the image with a %s aspect ratio.", req.AspectRatio)
	}
	if req.Size != "" {
		prompt += fmt.Sprintf(" Target a %s resolution.", req.Size)
	}
	if req.NumImages > 1 {
		prompt += fmt.Sprintf(" Produce %d image variations.", req.NumImages)
	}
	return prompt
}

// extractImages pulls inline image data out of the response candidates.
func extractImages(resp *genai.GenerateContentResponse) ([]models.Image, error) {
	var images models.Images

	for _, candidate := range resp.Candidates {
		if candidate.FinishReason != genai.FinishReasonStop &&
			candidate.FinishReason != genai.FinishReasonMaxTokens &&
			candidate.FinishReason != genai.FinishReasonUnspecified {
			return nil, &ClassifiedError{
				Kind:    models.ErrorKindPermanent,
				Message: fmt.Sprintf("generation refused: %s", candidate.FinishReason),
			}
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			switch p := part.(type) {
			case genai.Blob:
				images = append(images, models.Image{
					Index:    len(images),
					MIMEType: p.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(p.Data),
				})
			case genai.Text:
				logger.Debugf("response text: %s", string(p))
			}
		}
	}

	if len(images) == 0 {
		return nil, &ClassifiedError{
			Kind:    models.ErrorKindPermanent,
			Message: "no images in response",
		}
	}
	return images, nil
}
