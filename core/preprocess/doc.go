// Package preprocess rewrites a chat request before it reaches a wire adapter.
//
//   - [InjectSystemPrompt] prepends a render-safety system prompt in the
//     user's language.
//   - [AugmentMultimodal] folds attachments into the latest user message.
//   - [WebSearchInjector] grounds the latest question with web results and
//     reports progress as WebSearchStatus and WebSearchResults events.
//
// All functions return new slices and leave their inputs untouched.
package preprocess
