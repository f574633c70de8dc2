// generate-corpus produces a synthetic security Q&A corpus with Gemini and
// writes it to corpus storage in the ingestion format, a JSON array of
// {"file": ..., "metadata": {...}} entries. Answers become document content;
// the matching question travels along as metadata.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ragchat-backend/retrieval"
	"ragchat-backend/storage"

	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

var topics = []string{
	"SQL注入的原理与防范",
	"跨站脚本攻击(XSS)的类型和缓解措施",
	"OWASP Top 10 详解",
	"RSA非对称加密算法的数学原理",
	"AES对称加密算法的工作模式",
	"哈希函数(MD5, SHA-256)的特性与碰撞",
	"零信任网络架构(Zero Trust)的核心原则",
}

const qaPrompt = `你是一名顶级的网络安全教授和密码学专家。
请围绕以下主题，生成 %d 个高质量的、有深度的问答(Q&A)对。

主题: "%s"

请严格按照以下JSON列表格式输出，不要包含任何JSON格式之外的解释性文本：
[
  {"q": "问题1...", "a": "答案1..."},
  {"q": "问题2...", "a": "答案2..."}
]`

type qaPair struct {
	Question string `json:"q"`
	Answer   string `json:"a"`
}

func main() {
	outputKey := flag.String("out", "processed_corpus.json", "corpus file key in storage")
	perTopic := flag.Int("count", 5, "Q&A pairs per topic")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is not set")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-1.5-flash")
	model.SetTemperature(0.7)
	model.SetTopP(1)
	model.SetTopK(1)
	model.SetMaxOutputTokens(4096)

	corpusStore, err := storage.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to initialize corpus storage:", err)
	}

	var corpus []retrieval.CorpusEntry
	for i, topic := range topics {
		log.Printf("Generating %d Q&A pairs for topic %q", *perTopic, topic)

		pairs, err := generateTopic(ctx, model, topic, *perTopic)
		if err != nil {
			log.Printf("Skipping topic %q: %v", topic, err)
			continue
		}

		for _, qa := range pairs {
			if qa.Question == "" || qa.Answer == "" {
				continue
			}
			corpus = append(corpus, retrieval.CorpusEntry{
				File: qa.Answer,
				Metadata: map[string]interface{}{
					"source":   "synthetic",
					"topic":    topic,
					"question": qa.Question,
				},
			})
		}
		log.Printf("Generated %d entries for %q", len(pairs), topic)

		// Rate limit between topics.
		if i < len(topics)-1 {
			time.Sleep(5 * time.Second)
		}
	}

	data, err := json.MarshalIndent(corpus, "", "  ")
	if err != nil {
		log.Fatal("Failed to encode corpus:", err)
	}
	if err := corpusStore.Save(ctx, *outputKey, bytes.NewReader(data)); err != nil {
		log.Fatal("Failed to save corpus:", err)
	}
	log.Printf("Done: %d entries written to %s", len(corpus), *outputKey)
}

func generateTopic(ctx context.Context, model *genai.GenerativeModel, topic string, count int) ([]qaPair, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(qaPrompt, count, topic)))
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	// Models often wrap JSON in a markdown fence.
	raw := strings.TrimSpace(text.String())
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var pairs []qaPair
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &pairs); err != nil {
		return nil, fmt.Errorf("response is not a valid Q&A list: %w", err)
	}
	return pairs, nil
}
