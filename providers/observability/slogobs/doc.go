// Package slogobs implements observability.Provider over log/slog, with a
// compact human-readable handler (level names coloured through lipgloss when
// writing to a terminal) and a JSON handler for log aggregation.
package slogobs
