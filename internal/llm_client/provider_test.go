package llm_client

import (
	"testing"

	"mavplan/internal/config"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         Config
		wantName    string
		wantModel   string
		expectError bool
	}{
		{
			name:      "Ollama is the default backend",
			cfg:       Config{Host: "localhost:11434"},
			wantName:  "ollama",
			wantModel: ollamaDefault,
		},
		{
			name:      "Ollama with configured model",
			cfg:       Config{Backend: "OLLAMA", Model: "llama3.1:8b", Host: "http://127.0.0.1:11434"},
			wantName:  "ollama",
			wantModel: "llama3.1:8b",
		},
		{
			name:        "Gemini without an API key",
			cfg:         Config{Backend: "gemini"},
			expectError: true,
		},
		{
			name:        "Unknown backend",
			cfg:         Config{Backend: "tensorrt"},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(tc.cfg)
			if tc.expectError {
				if err == nil {
					t.Fatal("Expected an error, but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Did not expect an error, but got: %v", err)
			}
			if p.Name() != tc.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tc.wantName)
			}
			if got := p.AllowedModelOrDefault(""); got != tc.wantModel {
				t.Errorf("AllowedModelOrDefault(\"\") = %q, want %q", got, tc.wantModel)
			}
		})
	}
}

func TestFromModel(t *testing.T) {
	cfg := FromModel(config.Model{Type: "gemini", Name: "gemini-2.5-flash", BaseURL: "x", Temperature: 0.2, APIKey: "k"})
	want := Config{Backend: "gemini", Model: "gemini-2.5-flash", Host: "x", APIKey: "k", Temperature: 0.2}
	if cfg != want {
		t.Errorf("FromModel() = %+v, want %+v", cfg, want)
	}
}

func TestGeminiModelGuard(t *testing.T) {
	p := &geminiProvider{model: "gemini-2.5-flash"}
	if got := p.AllowedModelOrDefault("qwen3:8b"); got != geminiDefault {
		t.Errorf("non-gemini model should fall back to %s, got %s", geminiDefault, got)
	}
	if got := p.AllowedModelOrDefault(""); got != "gemini-2.5-flash" {
		t.Errorf("empty model should use configured model, got %s", got)
	}
}
