package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/storylens/storylens/internal/ai"
	"github.com/storylens/storylens/internal/config"
	"github.com/storylens/storylens/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	fmt.Println("Checking inference endpoint")
	fmt.Println("===========================")
	fmt.Printf("Endpoint: %s\n", cfg.EndpointURL)
	fmt.Printf("Model:    %s\n", cfg.Model)
	if cfg.EndpointAPIKey == "" {
		fmt.Println("API key:  (none, assuming local endpoint)")
	} else {
		fmt.Println("API key:  configured")
	}
	fmt.Println()

	if err := pingEndpoint(cfg); err != nil {
		fmt.Printf("❌ Endpoint check failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Endpoint is reachable and answered a chat request.")
	fmt.Println()

	reportFrames(cfg.OutputDir)
}

// pingEndpoint sends a minimal text-only chat request. A parseable answer
// means the endpoint speaks the chat-completions protocol; the content of
// the answer is irrelevant.
func pingEndpoint(cfg *config.Config) error {
	body, err := json.Marshal(map[string]any{
		"model": cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": "Reply with the single word: ok"},
		},
		"max_tokens": 10,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, cfg.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.EndpointAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.EndpointAPIKey)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ai.ErrEndpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %.200s", ai.ErrEndpoint, resp.StatusCode, data)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("unexpected response shape: %v", err)
	}
	if len(parsed.Choices) == 0 {
		return fmt.Errorf("endpoint returned no choices")
	}
	return nil
}

// reportFrames summarizes what is already on disk under the output
// directory: extracted frame sets, batch result exports and timelines.
func reportFrames(outputDir string) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		fmt.Printf("No output directory yet at %s\n", outputDir)
		return
	}

	fmt.Printf("Output directory: %s\n", outputDir)
	fmt.Println("------------------")

	dirs := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirs++
		frameDir := filepath.Join(outputDir, entry.Name())

		frames, _ := storage.ListFrames(frameDir)
		fmt.Printf("\n🎬 %s: %d frames\n", entry.Name(), len(frames))

		if data, err := os.ReadFile(filepath.Join(frameDir, storage.ResultsFile)); err == nil {
			var results []ai.AnalysisResult
			if json.Unmarshal(data, &results) == nil {
				ok := 0
				for _, r := range results {
					if r.Success {
						ok++
					}
				}
				fmt.Printf("   analyzed: %d frames (%d succeeded)\n", len(results), ok)
			}
		}

		if data, err := os.ReadFile(filepath.Join(frameDir, storage.TimelineFile)); err == nil {
			var scenes []ai.SceneAnalysis
			if json.Unmarshal(data, &scenes) == nil && len(scenes) > 0 {
				fmt.Printf("   timeline: %d scenes, latest %s\n", len(scenes), scenes[len(scenes)-1].SceneID)
			}
		}
	}

	if dirs == 0 {
		fmt.Println("No frame directories yet. Run analyze-video to get started.")
	}
}
