// Package websearch provides the web search backends used to ground a prompt
// with fresh results: a self-hosted endpoint ([CustomSearcher]) and the Google
// Custom Search JSON API ([GoogleSearcher]). [Resolve] picks the configured
// backend by priority and [FormatResults] renders hits for prompt injection.
package websearch
