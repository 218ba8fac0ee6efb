package gemini

import "strings"

// codeExecutionKeywords trigger the code execution tool when the last user
// message contains any of them (case-insensitive substring match).
var codeExecutionKeywords = []string{
	// English
	"calculate", "compute", "plot", "chart", "graph", "visualize", "visualise",
	"histogram", "regression", "statistics", "simulate", "run code", "execute",
	"python", "matplotlib", "numpy", "pandas", "dataframe",
	// Chinese
	"计算", "画图", "绘制", "图表", "可视化", "统计", "运行代码", "执行代码", "代码执行", "模拟",
	// Japanese
	"グラフ", "可視化",
}

// shouldAutoEnableCodeExecution reports whether text asks for something the
// code execution sandbox is good at.
func shouldAutoEnableCodeExecution(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lowered := strings.ToLower(text)
	for _, keyword := range codeExecutionKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
