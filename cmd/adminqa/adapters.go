// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/jllopis/adminqa/pkg/agent"
	"github.com/jllopis/adminqa/pkg/config"
	"github.com/jllopis/adminqa/pkg/llm"
	"github.com/jllopis/adminqa/pkg/query"
	"github.com/jllopis/adminqa/providers/openai"
)

const defaultOllamaURL = "http://localhost:11434"

// Adapter describes a configurable backend.
type Adapter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	ConfigKeys  []string `json:"config_keys,omitempty"`
	Docs        string   `json:"docs,omitempty"`
}

var adaptersRegistry = []Adapter{
	{
		Name:        "openai",
		Type:        "llm",
		Description: "OpenAI chat models; the API key is entered per question",
		ConfigKeys:  []string{"llm.provider=openai", "llm.model", "llm.base_url", "llm.timeout"},
		Docs:        "https://platform.openai.com/docs",
	},
	{
		Name:        "ollama",
		Type:        "llm",
		Description: "Local models served by Ollama; a key, if given, is sent as a bearer token",
		ConfigKeys:  []string{"llm.provider=ollama", "llm.base_url", "llm.model"},
		Docs:        "https://ollama.ai",
	},
	{
		Name:        "sqlite",
		Type:        "audit",
		Description: "Question audit trail in a local SQLite file",
		ConfigKeys:  []string{"audit.enabled=true", "audit.path"},
	},
	{
		Name:        "otel-stdout",
		Type:        "telemetry",
		Description: "OpenTelemetry traces and metrics to stdout",
		ConfigKeys:  []string{"telemetry.exporter=stdout"},
	},
	{
		Name:        "otel-otlp",
		Type:        "telemetry",
		Description: "OpenTelemetry export over OTLP gRPC",
		ConfigKeys:  []string{"telemetry.exporter=otlp", "telemetry.otlp_endpoint", "telemetry.otlp_insecure"},
		Docs:        "https://opentelemetry.io/docs/specs/otlp/",
	},
	{
		Name:        "mcp-stdio",
		Type:        "mcp",
		Description: "MCP tools over stdio (adminqa mcp)",
		Docs:        "https://modelcontextprotocol.io",
	},
	{
		Name:        "mcp-http",
		Type:        "mcp",
		Description: "MCP tools over streamable HTTP at /mcp (adminqa serve)",
		ConfigKeys:  []string{"web.addr"},
		Docs:        "https://modelcontextprotocol.io",
	},
}

func filterAdapters(kind string) []Adapter {
	if kind == "" {
		return adaptersRegistry
	}
	out := make([]Adapter, 0, len(adaptersRegistry))
	for _, a := range adaptersRegistry {
		if a.Type == kind {
			out = append(out, a)
		}
	}
	return out
}

func runAdapters(w io.Writer, flags globalFlags, args []string) error {
	cmd := flag.NewFlagSet("adapters", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	kind := cmd.String("type", "", "filter by type (llm, audit, telemetry, mcp)")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("adapters", err.Error())
	}

	adapters := filterAdapters(*kind)
	if flags.JSON {
		printJSON(w, adapters)
		return nil
	}
	tw := newTabWriter(w)
	writeRow(tw, "NAME", "TYPE", "DESCRIPTION")
	for _, a := range adapters {
		writeRow(tw, a.Name, a.Type, a.Description)
	}
	return tw.Flush()
}

// newProviderFactory returns a factory that binds the configured backend to
// the credential supplied with each question.
func newProviderFactory(cfg config.LLMConfig) (llm.Factory, error) {
	var client *http.Client
	if cfg.Timeout > 0 {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	switch cfg.Provider {
	case "openai":
		return func(credential string) (llm.Provider, error) {
			return openai.New(credential,
				openai.WithModel(cfg.Model),
				openai.WithBaseURL(cfg.BaseURL),
				openai.WithHTTPClient(client),
			), nil
		}, nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		return func(credential string) (llm.Provider, error) {
			opts := []llm.OllamaOption{llm.WithOllamaAPIKey(credential)}
			if client != nil {
				opts = append(opts, llm.WithHTTPClient(client))
			}
			return llm.NewOllama(baseURL, opts...), nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// newAgentFactory builds one table agent per question.
func newAgentFactory(cfg config.LLMConfig, providers llm.Factory) query.AgentFactory {
	return func(credential string) (agent.TableAgent, error) {
		provider, err := providers(credential)
		if err != nil {
			return nil, err
		}
		a, err := agent.New("table-qa", provider,
			agent.WithModel(cfg.Model),
			agent.WithTemperature(cfg.Temperature),
			agent.WithMaxRows(cfg.MaxRows),
		)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}
