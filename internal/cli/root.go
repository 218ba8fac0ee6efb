// Package cli implements the directchat command line: one streaming chat turn
// against any supported provider, rendered as it arrives.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leofalp/directchat/providers/ai"
)

const version = "0.1.0"

// NewRootCmd builds the directchat command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "directchat",
		Short:   "Stream chat completions from Gemini and OpenAI-compatible hosts",
		Version: version,
		Long: `Send one chat turn to Gemini's native API, any OpenAI-compatible host or the
application backend, and render the normalized event stream.

Configuration is read from the environment and from .env files.`,
		Example: `  # Use the default provider
  $ directchat stream "Explain goroutines"

  # Reason with DeepSeek and print envelope frames
  $ directchat stream --provider deepseek --model deepseek-reasoner \
      --address https://api.deepseek.com --key $DEEPSEEK_KEY --format envelope "2+2?"

  # Show which adapter would serve a request
  $ directchat classify --provider gemini --channel gemini-openai-compat`,
		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate(fmt.Sprintf("directchat version %s\n", version))
	root.PersistentFlags().StringSlice("env-file", []string{".env"}, "dotenv files to load before reading the environment")

	root.AddCommand(newStreamCmd())
	root.AddCommand(newClassifyCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// requestFlags are the flags shared by commands that build a ChatRequest.
type requestFlags struct {
	provider      string
	channel       string
	model         string
	address       string
	key           string
	system        string
	webSearch     bool
	codeExecution bool
	qwenSearch    bool
	forceSystem   bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.provider, "provider", "default", "provider name, or \"default\" for the built-in endpoint")
	flags.StringVar(&f.channel, "channel", "", "routing hint such as gemini or openai-compatible")
	flags.StringVar(&f.model, "model", "", "model identifier")
	flags.StringVar(&f.address, "address", "", "upstream API base URL")
	flags.StringVar(&f.key, "key", "", "upstream API key")
	flags.StringVar(&f.system, "system", "", "system message to send before the prompt")
	flags.BoolVar(&f.webSearch, "web-search", false, "ground the answer with web search")
	flags.BoolVar(&f.codeExecution, "code-execution", false, "enable Gemini code execution")
	flags.BoolVar(&f.qwenSearch, "qwen-search", false, "use DashScope's native search for Qwen models")
	flags.BoolVar(&f.forceSystem, "force-system-prompt", false, "inject the rendering prompt even with --system")
}

func (f *requestFlags) request(prompt string) ai.ChatRequest {
	var messages []ai.Message
	if f.system != "" {
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: f.system})
	}
	if prompt != "" {
		messages = append(messages, ai.Message{Role: ai.RoleUser, Content: prompt})
	}

	return ai.ChatRequest{
		Messages:            messages,
		Provider:            f.provider,
		Channel:             f.channel,
		Model:               f.model,
		APIAddress:          f.address,
		APIKey:              f.key,
		UseWebSearch:        f.webSearch,
		EnableCodeExecution: f.codeExecution,
		QwenEnableSearch:    f.qwenSearch,
		ForceSystemPrompt:   f.forceSystem,
	}
}
