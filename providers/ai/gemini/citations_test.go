package gemini

import "testing"

func TestApplyCitations(t *testing.T) {
	chunks := []groundingChunk{{Web: &webChunk{URI: "u0"}}, {Web: &webChunk{URI: "u1"}}}

	tests := []struct {
		name        string
		text        string
		supports    []groundingSupport
		expected    string
		wantApplied bool
	}{
		{
			name: "descending insertion keeps original offsets",
			text: "ABCDEFGHIJ",
			supports: []groundingSupport{
				{Segment: &segment{EndIndex: 5}, GroundingChunkIndices: []int{0}},
				{Segment: &segment{EndIndex: 10}, GroundingChunkIndices: []int{1}},
			},
			expected:    "ABCDE [1](u0)FGHIJ [2](u1)",
			wantApplied: true,
		},
		{
			name: "multiple chunks on one support",
			text: "ABC",
			supports: []groundingSupport{
				{Segment: &segment{EndIndex: 3}, GroundingChunkIndices: []int{0, 1}},
			},
			expected:    "ABC [1](u0) [2](u1)",
			wantApplied: true,
		},
		{
			name: "equal offsets keep support order",
			text: "ABC",
			supports: []groundingSupport{
				{Segment: &segment{EndIndex: 2}, GroundingChunkIndices: []int{0}},
				{Segment: &segment{EndIndex: 2}, GroundingChunkIndices: []int{1}},
			},
			expected:    "AB [1](u0) [2](u1)C",
			wantApplied: true,
		},
		{
			name: "offset past the end is skipped",
			text: "ABC",
			supports: []groundingSupport{
				{Segment: &segment{EndIndex: 99}, GroundingChunkIndices: []int{0}},
			},
			expected: "ABC",
		},
		{
			name: "missing segment, empty indices and bad chunk index are skipped",
			text: "ABC",
			supports: []groundingSupport{
				{GroundingChunkIndices: []int{0}},
				{Segment: &segment{EndIndex: 1}},
				{Segment: &segment{EndIndex: 1}, GroundingChunkIndices: []int{7}},
			},
			expected: "ABC",
		},
		{
			name: "offset inside a multi-byte rune moves to its end",
			text: "é!",
			supports: []groundingSupport{
				{Segment: &segment{EndIndex: 1}, GroundingChunkIndices: []int{0}},
			},
			expected:    "é [1](u0)!",
			wantApplied: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, applied := applyCitations(tt.text, &groundingMetadata{GroundingChunks: chunks, GroundingSupports: tt.supports})
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
			if applied != tt.wantApplied {
				t.Errorf("expected applied=%v, got %v", tt.wantApplied, applied)
			}
		})
	}
}

func TestApplyCitations_NilMetadata(t *testing.T) {
	if result, applied := applyCitations("text", nil); result != "text" || applied {
		t.Errorf("expected unchanged text, got %q (%v)", result, applied)
	}
}

func TestShouldAutoEnableCodeExecution(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{"Please CALCULATE the mean of 1,2,3", true},
		{"帮我可视化这组数据", true},
		{"Plot a sine wave", true},
		{"Tell me a joke", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := shouldAutoEnableCodeExecution(tt.text); got != tt.expected {
			t.Errorf("shouldAutoEnableCodeExecution(%q): expected %v, got %v", tt.text, tt.expected, got)
		}
	}
}
