// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// This package implements the ai.AIProvider interface using the langchaingo
// library to communicate with OpenAI or OpenAI-compatible services (such as
// the Gemini OpenAI endpoint, Ollama, LocalAI, or vLLM).
//
// Client errors are classified with langchaingo's provider error mapping and
// returned as *resilience.Error values, so rate limits and authentication
// failures can be told apart by the retry policy.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("https://generativelanguage.googleapis.com/v1beta/openai"),
//	    ai.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	    ai.WithEmbeddingModel("gemini-embedding-001"),
//	    ai.WithChatModel("gemini-2.0-flash"),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "sample text")
package openai
