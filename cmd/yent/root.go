// Package main is the yent command-line entry point: a single-binary
// Qwen2 GGUF inference runner supporting one-shot instruct prompts and
// interactive chat sessions.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ariannamethod/yent/internal/generate"
	"github.com/ariannamethod/yent/internal/model"
	"github.com/ariannamethod/yent/internal/sampler"
	"github.com/ariannamethod/yent/internal/tokenizer"
)

type cliOptions struct {
	modelPath    string
	interactive  bool
	instruct     bool
	prompt       string
	systemPrompt string
	temperature  float32
	topP         float32
	seed         int64
	maxTokens    int
	stream       bool
	echo         bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:           "yent",
		Short:         "Run autoregressive text generation with a Qwen2 GGUF model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.modelPath, "model", "", "path to a Qwen2 GGUF file (required)")
	flags.BoolVarP(&opts.interactive, "interactive", "i", false, "run an interactive chat session")
	flags.BoolVar(&opts.interactive, "chat", false, "alias for --interactive")
	flags.BoolVar(&opts.instruct, "instruct", false, "run a single instruct-mode turn")
	flags.StringVarP(&opts.prompt, "prompt", "p", "", "prompt text")
	flags.StringVar(&opts.systemPrompt, "system-prompt", "", "system prompt prefixed to the conversation")
	flags.StringVar(&opts.systemPrompt, "sp", "", "alias for --system-prompt")
	flags.Float32Var(&opts.temperature, "temperature", 0.1, "sampling temperature (0 selects argmax)")
	flags.Float32Var(&opts.topP, "top-p", 0.95, "nucleus sampling threshold in [0,1]")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed")
	flags.IntVarP(&opts.maxTokens, "max-tokens", "n", 512, "maximum tokens to generate (<0 means context length)")
	flags.BoolVar(&opts.stream, "stream", true, "stream tokens as they are generated")
	flags.BoolVar(&opts.echo, "echo", false, "echo the prompt before generated output")

	cmd.MarkFlagRequired("model")

	return cmd
}

func run(cmd *cobra.Command, opts *cliOptions) error {
	if opts.temperature < 0 {
		return fmt.Errorf("--temperature must be >= 0, got %v", opts.temperature)
	}
	if opts.topP < 0 || opts.topP > 1 {
		return fmt.Errorf("--top-p must be in [0,1], got %v", opts.topP)
	}

	m, err := model.Load(opts.modelPath)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	defer m.Close()

	tok := m.Tokenizer
	samp := sampler.New(opts.temperature, opts.topP, opts.seed)

	imStart := tok.FindSpecialToken("<|im_start|>")
	sess := generate.NewSession(m, imStart)
	stop := tok.StopIDs()

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()

	genOpts := generate.Options{
		MaxTokens: resolveMaxTokens(opts.maxTokens, m.Config.ContextLength),
		Sampler:   samp,
	}
	if opts.stream {
		genOpts.OnToken = func(id int) {
			if !tok.IsPrintable(id) {
				return
			}
			fmt.Fprint(out, tokenizer.EscapeControl(tok.Decode([]int{id})))
			out.Flush()
		}
	}

	if opts.interactive {
		return runChat(cmd, sess, tok, stop, genOpts, opts)
	}
	return runInstruct(sess, tok, stop, genOpts, opts, out)
}

func resolveMaxTokens(requested, contextLength int) int {
	if requested < 0 {
		return contextLength
	}
	return requested
}

func runInstruct(sess *generate.Session, tok *tokenizer.Tokenizer, stop map[int]bool, genOpts generate.Options, opts *cliOptions, out *bufio.Writer) error {
	messages := buildMessages(opts.systemPrompt, opts.prompt)
	prompt := generate.BuildPrompt(tok, messages)

	if opts.echo {
		fmt.Fprint(out, opts.prompt)
		out.Flush()
	}

	generated := sess.Run(prompt, stop, genOpts)
	if genOpts.OnToken == nil {
		fmt.Fprint(out, tokenizer.EscapeControl(tok.Decode(filterPrintable(tok, generated))))
	}
	return nil
}

// runChat drives the interactive REPL. sess is a single long-lived
// Session: its KV cache accumulates across turns, so each iteration
// feeds only the new turn's delta tokens (the user message plus the
// assistant header that primes the reply) rather than re-encoding and
// re-forwarding the whole conversation, which would write the earlier
// turns' tokens into the cache a second time at the wrong positions.
func runChat(cmd *cobra.Command, sess *generate.Session, tok *tokenizer.Tokenizer, stop map[int]bool, genOpts generate.Options, opts *cliOptions) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()

	firstTurn := true
	for {
		fmt.Fprint(out, "> ")
		out.Flush()
		if !scanner.Scan() {
			return nil
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		var turn []tokenizer.Message
		if firstTurn && opts.systemPrompt != "" {
			turn = append(turn, tokenizer.Message{Role: tokenizer.RoleSystem, Content: opts.systemPrompt})
		}
		firstTurn = false
		turn = append(turn, tokenizer.Message{Role: tokenizer.RoleUser, Content: line})
		prompt := generate.BuildPrompt(tok, turn)

		generated := sess.Run(prompt, stop, genOpts)
		if genOpts.OnToken == nil {
			fmt.Fprint(out, tokenizer.EscapeControl(tok.Decode(filterPrintable(tok, generated))))
		}
		fmt.Fprintln(out)
		out.Flush()
	}
}

func buildMessages(systemPrompt, prompt string) []tokenizer.Message {
	var messages []tokenizer.Message
	if systemPrompt != "" {
		messages = append(messages, tokenizer.Message{Role: tokenizer.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, tokenizer.Message{Role: tokenizer.RoleUser, Content: prompt})
	return messages
}

// filterPrintable drops control/special ids from a sequence before a
// non-streaming decode, mirroring the suppression streaming applies
// per-token.
func filterPrintable(tok *tokenizer.Tokenizer, ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if tok.IsPrintable(id) {
			out = append(out, id)
		}
	}
	return out
}

func fatal(err error) {
	slog.Error("yent: fatal", "err", err)
	os.Exit(1)
}
