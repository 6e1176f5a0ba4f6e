package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/parleyhq/parley/assistant"
	"github.com/parleyhq/parley/assistant/serve"
	"github.com/parleyhq/parley/assistant/terminal"
	"github.com/parleyhq/parley/config"
	"github.com/parleyhq/parley/llm"
	"github.com/parleyhq/parley/tools"
)

func main() {
	modelFlag := flag.String("m", "", "Model to use, overriding the configured one")
	assistantFlag := flag.String("a", "", "Assistant profile to run (defaults to 'default')")
	autoFlag := flag.Bool("auto", true, "Execute tool invocations without asking")
	serveFlag := flag.Bool("serve", false, "Speak JSON-RPC on stdin/stdout instead of the terminal UI")
	traceFlag := flag.Bool("trace", false, "Write a protocol trace to parley.trace in serve mode")
	verbosityFlag := flag.String("verbosity", "none", "Tool reporting in the terminal: 'none', 'calls' or 'full'")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}

	profile, err := cfg.GetAssistant(*assistantFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error selecting assistant: %+v\n", err)
		os.Exit(1)
	}

	verbosity, err := terminal.ParseVerbosity(*verbosityFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	model := *modelFlag
	if model == "" {
		model = profile.Model
	}
	if model == "" {
		model = cfg.Model
	}

	ctx := context.Background()

	client, err := newClient(ctx, cfg.Provider, model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing %s client: %+v\n", cfg.Provider, err)
		os.Exit(1)
	}

	registry := tools.NewRegistry(cfg)
	defer registry.Close()
	if err := registry.ConnectMCP(ctx, cfg.AdditionalMCPServers); err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting MCP servers: %+v\n", err)
		os.Exit(1)
	}

	toolset, err := cfg.GetToolset(profile.Toolset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error selecting toolset: %+v\n", err)
		os.Exit(1)
	}
	activeTools, err := registry.Resolve(toolset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving toolset '%s': %+v\n", toolset.Name, err)
		os.Exit(1)
	}

	factory := func() (*assistant.Assistant, error) {
		return assistant.New(profile.Name, client, nil, nil,
			assistant.WithDescription(profile.Description),
			assistant.WithInstructions(profile.Instructions),
			assistant.WithTools(activeTools...),
		)
	}

	if *serveFlag {
		// Stdout belongs to the protocol here, so the banner goes to the log.
		slog.Info("starting parley in serve mode")
		in := bufio.NewReader(os.Stdin)
		out := bufio.NewWriter(os.Stdout)
		if err := serve.Run(ctx, factory, in, out, *traceFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Serve mode failed: %+v\n", err)
			os.Exit(1)
		}
		return
	}

	a, err := factory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing assistant: %+v\n", err)
		os.Exit(1)
	}

	initialPrompt := strings.Join(flag.Args(), " ")
	fmt.Println("Parley is ready. Type your prompt.")
	term := terminal.New(a, *autoFlag, verbosity)
	if err := term.Run(ctx, initialPrompt); err != nil {
		fmt.Fprintf(os.Stderr, "Assistant stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}

// newClient builds the provider client named in the configuration. An empty
// or unknown provider falls back to the scripted mock so the binary still
// runs without credentials.
func newClient(ctx context.Context, provider, model string) (llm.Client, error) {
	switch provider {
	case "anthropic":
		return llm.NewAnthropicClient(ctx, model)
	case "openai":
		return llm.NewOpenAIClient(ctx, model)
	case "gemini":
		return llm.NewGeminiClient(ctx, model)
	case "bedrock":
		return llm.NewBedrockClient(ctx, model)
	default:
		return &llm.MockClient{Model: model}, nil
	}
}
