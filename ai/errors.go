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

package ai

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrEmptyCompletion indicates the model returned no choices.
	ErrEmptyCompletion = errors.New("completion returned no choices")

	// ErrEmbeddingCount indicates an embedder returned a different number of
	// vectors than texts it was given.
	ErrEmbeddingCount = errors.New("embedding count mismatch")
)

// ErrorKind classifies a failed remote call.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindRateLimit      ErrorKind = "rate_limit"
	KindUnavailable    ErrorKind = "unavailable"
	KindTimeout        ErrorKind = "timeout"
	KindCanceled       ErrorKind = "canceled"
	KindUnknown        ErrorKind = "unknown"
)

// Classify maps err onto an ErrorKind. It understands langchaingo's
// standardized llms.Error codes and the context package errors.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case llms.IsAuthenticationError(err):
		return KindAuthentication
	case llms.IsRateLimitError(err), llms.IsQuotaExceededError(err):
		return KindRateLimit
	case llms.IsProviderUnavailableError(err):
		return KindUnavailable
	case llms.IsTimeoutError(err), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case llms.IsCanceledError(err), errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindUnknown
	}
}
