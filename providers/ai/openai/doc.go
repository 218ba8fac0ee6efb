// Package openai implements [ai.StreamProvider] for OpenAI-compatible
// chat-completions endpoints (OpenAI, DeepSeek, OpenRouter, DashScope/Qwen,
// Gemini's compatibility layer and similar hosts).
//
// Requests are serialized to the /v1/chat/completions wire format with
// stream=true. Pure-text messages are flattened to a bare string; multimodal
// messages become content-part arrays carrying text, input_audio and
// image_url parts. Provider-specific extensions are added by sniffing the
// channel, model and address of the request.
//
// Streamed delta chunks are parsed by a small state machine: reasoning text
// is read from whichever of reasoning_content, reasoning, thinking or
// thoughts the host uses, tool-call fragments are reassembled by index, and
// the full answer is emitted once more as ContentFinal when the stream ends.
//
// DashScope document uploads are handled out of band by [QwenUploader], which
// replaces marked inline parts with file id references before the request is
// built.
package openai
