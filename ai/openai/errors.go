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

package openai

import (
	"context"
	"errors"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/resilience"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// tagError classifies a client error and wraps it in a *resilience.Error.
// Context errors are returned unchanged.
func tagError(subsystem, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return resilience.Tag(subsystem, op, classify(err), err)
}

// classify maps a client error to a resilience kind using langchaingo's
// provider error mapping. Errors it does not recognize are checked for
// transport failures.
func classify(err error) resilience.Kind {
	mapped := openai.MapError(err)
	switch {
	case llms.IsRateLimitError(mapped), llms.IsQuotaExceededError(mapped):
		return resilience.RateLimited
	case llms.IsAuthenticationError(mapped):
		return resilience.AuthFailure
	case llms.IsProviderUnavailableError(mapped), llms.IsTimeoutError(mapped):
		return resilience.ServiceUnavailable
	default:
		return resilience.ClassifyTransport(err)
	}
}

// token returns the configured API key, or a placeholder for local servers
// that don't require authentication.
func token(config *ai.Config) string {
	if config.APIKey == "" {
		return "none"
	}
	return config.APIKey
}
