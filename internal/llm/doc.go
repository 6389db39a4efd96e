// Package llm provides the fallback classifier used for transactions no rule
// matches. It supports a local Ollama server as well as the OpenAI and
// Anthropic APIs, with retry logic, rate limiting and response caching.
package llm
