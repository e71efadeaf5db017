// Package gemini implements extraction.Generator with Gemini models on Vertex AI.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/auth/credentials"
	"google.golang.org/genai"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

type Config struct {
	Project string
	// Location is the Vertex AI region, for example us-central1.
	Location string
	Model    string
	// CredentialsFile is a service account key. Empty uses application default credentials.
	CredentialsFile string
}

type Generator struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.Project == "" {
		return nil, errors.New("gemini: project is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("gemini: model is required")
	}

	cc := &genai.ClientConfig{
		Project:     cfg.Project,
		Location:    cfg.Location,
		Backend:     genai.BackendVertexAI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}

	if cfg.CredentialsFile != "" {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			CredentialsFile: cfg.CredentialsFile,
			Scopes:          []string{cloudPlatformScope},
		})
		if err != nil {
			return nil, fmt.Errorf("gemini credentials: %w", err)
		}
		cc.Credentials = creds
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Generator{client: client, model: cfg.Model}, nil
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}
