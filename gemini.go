package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const scanPrompt = `Analyse cette photo d'un picross (nonogramme) carré.

Extrais les indices au format JSON suivant :
{
  "size": <nombre de lignes, égal au nombre de colonnes>,
  "rows": ["3", "1,1", ...],
  "cols": ["2", "", ...]
}

Règles :
- "rows" contient un indice par ligne, de haut en bas.
- "cols" contient un indice par colonne, de gauche à droite.
- Un indice liste les longueurs des blocs dans l'ordre (gauche à droite ou haut en bas), séparées par des virgules.
- Une ligne ou colonne sans indice, ou avec l'indice 0, vaut "".
- Ignore les cases déjà remplies : seuls les indices comptent.
- Réponds UNIQUEMENT avec le JSON, sans commentaire ni markdown.`

// ErrInvalidSheet is returned when Gemini's answer is not a usable clue sheet.
var ErrInvalidSheet = errors.New("invalid clue sheet")

// ScanClues sends a photo of a puzzle to Gemini and returns its clues.
func (g *GeminiClient) ScanClues(ctx context.Context, imageData []byte, mimeType string) (*ClueSheet, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: scanPrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
			},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.1)),
			TopP:             genai.Ptr(float32(1)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty gemini response")
	}

	return decodeSheet([]byte(text), g.maxGridSize)
}

// decodeSheet parses a JSON clue sheet and checks its shape.
func decodeSheet(data []byte, maxSize int) (*ClueSheet, error) {
	var sheet ClueSheet
	if err := json.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("parse clue JSON: %w\nraw response: %s", err, data)
	}

	if sheet.Size < 1 || sheet.Size > maxSize {
		return nil, fmt.Errorf("%w: size %d outside [1, %d]", ErrInvalidSheet, sheet.Size, maxSize)
	}
	if len(sheet.Rows) != sheet.Size || len(sheet.Cols) != sheet.Size {
		return nil, fmt.Errorf("%w: size %d with %d row and %d column clues",
			ErrInvalidSheet, sheet.Size, len(sheet.Rows), len(sheet.Cols))
	}

	return &sheet, nil
}
