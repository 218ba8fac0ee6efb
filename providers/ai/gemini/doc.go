// Package gemini implements [ai.StreamProvider] for Google's native Gemini
// generative language API.
//
// Requests are converted to the streamGenerateContent wire format: system
// messages become a systemInstruction, assistant turns use the "model" role,
// and Google Search grounding or the code execution sandbox are enabled on
// demand (code execution also by a keyword heuristic over the last user
// message). Streamed chunks are parsed by a small state machine that
// separates thoughts from answer text, surfaces code execution parts and
// generated images, and rewrites the final text with Markdown citations
// derived from groundingMetadata.
package gemini
