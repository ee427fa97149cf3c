// Package genimage generates fashion imagery and marketing copy through the
// Gemini API.
package genimage

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	imageModel = "gemini-2.5-flash-image-preview"
	textModel  = "gemini-2.5-flash"

	requestTimeout = 30 * time.Second
)

// Generator wraps the Gemini client for the image endpoints.
type Generator struct {
	client *genai.Client
}

func NewGenerator(ctx context.Context, apiKey string) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Generator{client: client}, nil
}

// GenerateModelImage turns a user photo into a studio model shot. The result
// is a data URL holding the generated image.
func (g *Generator) GenerateModelImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	prompt := `You are an expert AI fashion photographer. Your task is to take the person from the provided image and place them in a professional e-commerce fashion photo.

**ULTIMATE COMMAND: PRESERVE THE ORIGINAL FACE. THIS IS A STRICT, NON-NEGOTIABLE RULE. DO NOT CHANGE THE FACE.**

**PRIMARY DIRECTIVE: The person's facial features, structure, and identity MUST be 100% preserved from the original photo. Any alteration to the face, however minor, is a complete failure of the task. The face in the output image must be IDENTICAL to the face in the input image.**

**SECONDARY INSTRUCTIONS:**
1.  **PRESERVE BODY TYPE:** The person's body type must be maintained.
2.  **POSE & BACKGROUND:** Place the person in a standard, relaxed standing model pose against a clean, neutral studio backdrop (light gray, #f0f0f0). If the original image is not full-body, generate a realistic full-body view that is consistent with the person shown.
3.  **OUTPUT:** The final image must be photorealistic. Return ONLY the final image.

**FINAL CHECK: Did you alter the face? If so, you have failed. Discard the result and start again, this time PRESERVING THE FACE EXACTLY as commanded.`

	return g.generateImage(ctx, []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	})
}

// VirtualTryOn dresses the person from modelImage (a data URL) in the
// provided garment photo.
func (g *Generator) VirtualTryOn(ctx context.Context, modelImage string, garment []byte, garmentMIME string) (string, error) {
	modelPart, err := dataURLToPart(modelImage)
	if err != nil {
		return "", err
	}

	prompt := `You are an expert virtual try-on AI. Your task is to perform a garment **REPLACEMENT**. You will receive a 'model image' and a 'garment image'. You must create a new image where the person from the 'model image' is wearing the garment from the 'garment image'.

**ULTIMATE COMMAND: This is a REPLACEMENT, not a layering operation. You MUST first virtually REMOVE ALL existing clothing from the person in the 'model image'. The person should be undressed before you apply the new garment. Any part of the original clothing (collars, sleeves, etc.) showing in the final image is a critical failure.**

**Step-by-step process:**
1.  **Analyze Model:** Look at the person in the 'model image'.
2.  **Undress Model:** Virtually remove ALL clothing items they are wearing, leaving only the person.
3.  **Dress Model:** Realistically place the new garment from the 'garment image' onto the now-undressed person.

**Rules for the final image:**
*   **PRESERVE THE MODEL:** The person's face, hair, body shape, and pose from the 'model image' MUST remain identical.
*   **PRESERVE THE BACKGROUND:** The background from the 'model image' MUST be preserved perfectly.
*   **REALISTIC FIT:** The new garment must fit the person's body and pose naturally, with correct lighting and shadows that match the original image.
*   **OUTPUT:** Return ONLY the final, edited image. Do not include any text.`

	return g.generateImage(ctx, []*genai.Part{
		genai.NewPartFromText(prompt),
		modelPart,
		genai.NewPartFromBytes(garment, garmentMIME),
	})
}

// PoseVariation re-renders the image (a data URL) from a different camera
// angle described by poseInstruction.
func (g *Generator) PoseVariation(ctx context.Context, image, poseInstruction string) (string, error) {
	imagePart, err := dataURLToPart(image)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Create a professional fashion photography variation of the provided image with a different camera angle.

**Technical Requirements:**
- Maintain exact same dimensions and aspect ratio
- Preserve the person's appearance, clothing, and background
- Apply new camera perspective: "%s"
- Professional fashion photography quality
- Return only the final image`, poseInstruction)

	return g.generateImage(ctx, []*genai.Part{
		genai.NewPartFromText(prompt),
		imagePart,
	})
}

// Closeup produces a waist-up or detail shot from the image (a data URL).
func (g *Generator) Closeup(ctx context.Context, image, outfitDescription string) (string, error) {
	imagePart, err := dataURLToPart(image)
	if err != nil {
		return "", err
	}

	clothingFocus := "Highlight garment details"
	if outfitDescription != "" {
		clothingFocus = "Highlight clothing details: " + outfitDescription
	}

	prompt := fmt.Sprintf(`Create a professional close-up fashion photograph from the provided image.

**Requirements:**
- Same dimensions and aspect ratio as source
- Close-up view (waist up or detail shot)
- %s
- Showcase fabric texture and craftsmanship
- Professional fashion photography quality
- Return only the final image`, clothingFocus)

	return g.generateImage(ctx, []*genai.Part{
		genai.NewPartFromText(prompt),
		imagePart,
	})
}

var introPhrase = regexp.MustCompile(`^.*:\s*\n*`)

// PostCopy writes an Instagram caption for the outfit shown in the image
// (a data URL).
func (g *Generator) PostCopy(ctx context.Context, image, outfitDescription, sceneDescription, brandName string) (string, error) {
	imagePart, err := dataURLToPart(image)
	if err != nil {
		return "", err
	}

	outfitText := "The person is wearing the displayed outfit."
	if outfitDescription != "" {
		outfitText = "The outfit consists of: " + outfitDescription + "."
	}
	brandText := "No brand name was provided. Do not invent a brand name."
	if brandName != "" {
		brandText = fmt.Sprintf("The fashion brand is %q. Mention the brand name at least once in a natural way.", brandName)
	}

	prompt := fmt.Sprintf(`You are an expert social media marketer and copywriter for a trendy e-commerce fashion brand.
Based on the provided image, the outfit, and the scene, write an engaging Instagram post caption. Use relevant emojis to make the post more visually appealing.

The caption MUST include these three sections in order:
1.  **Product Description:** A captivating description of the outfit (2-3 sentences). Focus on the style, material, and how it makes the wearer feel.
2.  **Call to Action (CTA):** A clear and compelling call to action (1 sentence). Encourage users to shop, learn more, or comment.
3.  **Hashtags:** A list of 5-7 relevant and trending hashtags.

**Outfit Details:** %s
**Scene Details:** The scene is: %s.
**Brand Details:** %s

Generate ONLY the caption text, without any introductory phrases like "Here's the caption:".`, outfitText, sceneDescription, brandText)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, textModel, []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt), imagePart}, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		if reason := blockReason(resp); reason != "" {
			return "", fmt.Errorf("request was blocked: %s", reason)
		}
		return "", fmt.Errorf("the model did not return a post copy, this could be due to safety filters or a temporary issue")
	}

	// Models occasionally prefix the caption with "Here's the caption:".
	return strings.TrimSpace(introPhrase.ReplaceAllString(text, "")), nil
}

func (g *Generator) generateImage(ctx context.Context, parts []*genai.Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, imageModel, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	return imageFromResponse(resp)
}

// imageFromResponse extracts the first inline image from any candidate and
// returns it as a data URL. Mirrors the precedence of the frontend client:
// block reason first, then image, then an abnormal finish reason, then any
// text the model produced instead.
func imageFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if reason := blockReason(resp); reason != "" {
		return "", fmt.Errorf("request was blocked: %s", reason)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				encoded := base64.StdEncoding.EncodeToString(part.InlineData.Data)
				return fmt.Sprintf("data:%s;base64,%s", part.InlineData.MIMEType, encoded), nil
			}
		}
	}

	if len(resp.Candidates) > 0 {
		if reason := resp.Candidates[0].FinishReason; reason != "" && reason != genai.FinishReasonStop {
			return "", fmt.Errorf("image generation stopped unexpectedly, reason: %s", reason)
		}
	}

	if text := firstText(resp); text != "" {
		return "", fmt.Errorf("the model did not return an image, it responded with text: %q", text)
	}
	return "", fmt.Errorf("the model did not return an image, this can happen due to safety filters or if the request is too complex")
}

func blockReason(resp *genai.GenerateContentResponse) string {
	if resp.PromptFeedback == nil || resp.PromptFeedback.BlockReason == "" {
		return ""
	}
	reason := string(resp.PromptFeedback.BlockReason)
	if msg := resp.PromptFeedback.BlockReasonMessage; msg != "" {
		reason += ", " + msg
	}
	return reason
}

func firstText(resp *genai.GenerateContentResponse) string {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

// dataURLToPart decodes a data:<mime>;base64,<payload> URL into an inline
// image part.
func dataURLToPart(dataURL string) (*genai.Part, error) {
	header, payload, found := strings.Cut(dataURL, ",")
	if !found {
		return nil, fmt.Errorf("invalid data URL")
	}
	if !strings.HasPrefix(header, "data:") {
		return nil, fmt.Errorf("invalid data URL")
	}
	mimeType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if mimeType == "" {
		return nil, fmt.Errorf("could not parse MIME type from data URL")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data URL payload: %w", err)
	}
	return genai.NewPartFromBytes(data, mimeType), nil
}
