// Package utils provides shared low-level helpers used by the directchat
// adapters. It covers HTTP request helpers for synchronous, multipart and
// streaming (SSE) communication with upstream chat APIs, a frame reader that
// normalises SSE and NDJSON bodies, lenient JSON frame decoding, and small
// pointer and string utilities.
//
// Key entry points: [DoPostStream] together with [SSEScanner] for streaming,
// [DecodeFrame] for tolerant frame decoding, [DoPostSync] and
// [DoPostMultipart] for one-shot calls, and [Ptr] for literal pointers.
package utils
