// Package config loads the engine configuration from the environment and an
// optional .env file. Variable names are prefixed with DIRECTCHAT_, except for
// the third-party credentials (GOOGLE_SEARCH_*, DASHSCOPE_*) which keep their
// conventional names.
package config
