package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	// arrange
	testCases := []struct {
		input    string
		expected json.RawMessage
	}{
		{
			input:    `{"text": "value"}`,
			expected: json.RawMessage(`{ "text" : "value" }`),
		},
		{
			input:    `Here is some text before the JSON {"text": "value"} and some after.`,
			expected: json.RawMessage(`{"text": "value"}`),
		},
		{
			input:    `No JSON here`,
			expected: nil,
		},
		{
			input:    "Here is the transcription:\n\n{\n  \"text\": \"Factura {n.º 12}\\nTotal: 31,06 €\"\n}",
			expected: json.RawMessage(`{"text":"Factura {n.º 12}\nTotal: 31,06 €"}`),
		},
		{
			input:    `{"text": "unbalanced }"`,
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("input=%q", tc.input), func(t *testing.T) {
			// act
			actual, _ := extractJSON(tc.input)

			if tc.expected == nil {
				if actual != nil {
					t.Errorf("expected nil, got %q", actual)
				}
				return
			}

			// assert
			var expectedMap, resultMap map[string]any

			if err := json.Unmarshal(tc.expected, &expectedMap); err != nil {
				t.Fatalf("Failed to unmarshal expected JSON: %v", err)
			}

			if err := json.Unmarshal(actual, &resultMap); err != nil {
				t.Fatalf("Failed to unmarshal result JSON: %v", err)
			}

			if !reflect.DeepEqual(expectedMap, resultMap) {
				t.Errorf("JSON objects don't match.\nExpected: %v\nGot: %v", expectedMap, resultMap)
			}
		})
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, os.WriteFile(path, []byte("not really a png"), 0o644))
	return path
}

// ollamaServer answers /api/show for the listed models and hands every
// other request to generate.
func ollamaServer(t *testing.T, models []string, generate http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/show" {
			var req showRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if !slices.Contains(models, req.Model) {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"modelfile":""}`))
			return
		}
		generate(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEngine_ProcessImage(t *testing.T) {
	var received OllamaRequest
	srv := ollamaServer(t, []string{"llava"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(OllamaResponse{
			Response: "Sure! {\"text\": \"Señor García\"}",
			Done:     true,
		})
	})

	e, err := NewOllamaEngine(srv.URL+"/", "llava", OllamaSettings{Language: "es", CPUThreads: 4})
	require.NoError(t, err)

	out, err := e.ProcessImage(writeImage(t), Options{DetectRotation: true})
	require.NoError(t, err)

	assert.JSONEq(t, `{"text":"Señor García"}`, string(out))
	assert.Equal(t, "llava", received.Model)
	assert.False(t, received.Stream)
	assert.Len(t, received.Images, 1)
	assert.Contains(t, received.Prompt, "Spanish")
	assert.Contains(t, received.Prompt, "may be rotated")
	assert.EqualValues(t, 4, received.Options["num_thread"])
	assert.EqualValues(t, 0, received.Options["num_gpu"])
	assert.Equal(t, "Ollama llava", e.Version())
}

func TestOllamaEngine_BareTextResponse(t *testing.T) {
	srv := ollamaServer(t, []string{defaultModel}, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(OllamaResponse{Response: "  HELLO WORLD \n", Done: true})
	})

	e, err := NewOllamaEngine(srv.URL, "", OllamaSettings{Language: "en"})
	require.NoError(t, err)

	out, err := e.ProcessImage(writeImage(t), Options{})
	require.NoError(t, err)

	var res textResult
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, "HELLO WORLD", res.Text)
	assert.Empty(t, res.Lines)
	assert.Equal(t, defaultModel, e.model)
}

func TestNewOllamaEngine_ChecksModel(t *testing.T) {
	srv := ollamaServer(t, []string{"llava"}, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})

	e, err := NewOllamaEngine(srv.URL, "llama3.2-vision", OllamaSettings{Language: "en"})
	assert.Nil(t, e)
	assert.ErrorContains(t, err, "ollama model llama3.2-vision is not available")

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err = NewOllamaEngine(broken.URL, "llava", OllamaSettings{})
	assert.ErrorContains(t, err, "model check failed with status: 500")

	addr := broken.URL
	broken.Close()
	_, err = NewOllamaEngine(addr, "llava", OllamaSettings{})
	assert.ErrorContains(t, err, "ollama not reachable")
}

func TestOllamaEngine_Errors(t *testing.T) {
	srv := ollamaServer(t, []string{"llava"}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	e, err := NewOllamaEngine(srv.URL, "llava", OllamaSettings{Language: "en"})
	require.NoError(t, err)

	_, err = e.ProcessImage(writeImage(t), Options{})
	assert.ErrorContains(t, err, "status: 500")

	_, err = e.ProcessImage(filepath.Join(t.TempDir(), "missing.png"), Options{})
	assert.ErrorContains(t, err, "failed to read image")
}
