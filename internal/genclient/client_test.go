package genclient

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanobanan/banana/internal/db/models"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindPermanent, Kind(err))
}

func TestRenderPrompt(t *testing.T) {
	req := Request{Prompt: "a red barn", AspectRatio: "16:9", Size: "2K", NumImages: 3}
	rendered := renderPrompt(req)
	assert.Contains(t, rendered, "a red barn")
	assert.Contains(t, rendered, "16:9 aspect ratio")
	assert.Contains(t, rendered, "2K resolution")
	assert.Contains(t, rendered, "3 image variations")

	// Bare prompt passes through untouched
	assert.Equal(t, "a red barn", renderPrompt(Request{Prompt: "a red barn", NumImages: 1}))
}

func TestExtractImages(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{
				Parts: []genai.Part{
					genai.Text("here you go"),
					genai.Blob{MIMEType: "image/png", Data: []byte("first")},
					genai.Blob{MIMEType: "image/jpeg", Data: []byte("second")},
				},
			},
		}},
	}

	images, err := extractImages(resp)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, 0, images[0].Index)
	assert.Equal(t, "image/png", images[0].MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("first")), images[0].Data)
	assert.Equal(t, 1, images[1].Index)
	assert.Equal(t, "image/jpeg", images[1].MIMEType)
}

func TestExtractImagesRefusal(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonSafety,
		}},
	}

	_, err := extractImages(resp)
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindPermanent, Kind(err))
	assert.Contains(t, err.Error(), "generation refused")
}

func TestExtractImagesEmptyResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{
				Parts: []genai.Part{genai.Text("no image, just words")},
			},
		}},
	}

	_, err := extractImages(resp)
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindPermanent, Kind(err))
	assert.Contains(t, err.Error(), "no images in response")
}
