// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jllopis/adminqa/pkg/access"
	"github.com/jllopis/adminqa/pkg/config"
	"github.com/jllopis/adminqa/pkg/errors"
	adminmcp "github.com/jllopis/adminqa/pkg/mcp"
	"github.com/jllopis/adminqa/pkg/query"
	"golang.org/x/term"
)

type askOptions struct {
	Role     access.Role
	APIKey   string
	Server   string
	Question string
}

func parseAskArgs(args []string) (askOptions, error) {
	cmd := flag.NewFlagSet("ask", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	role := cmd.String("role", string(access.DefaultRole), "admin role")
	apiKey := cmd.String("api-key", "", "credential for the reasoning service (prompted when empty)")
	server := cmd.String("server", "", "ask a running adminqa server, e.g. http://localhost:8501/mcp")
	if err := cmd.Parse(args); err != nil {
		return askOptions{}, NewInvalidArgumentError("ask", err.Error())
	}

	r, ok := access.ParseRole(*role)
	if !ok {
		return askOptions{}, NewInvalidArgumentError("--role", fmt.Sprintf("unknown role %q", *role))
	}
	return askOptions{
		Role:     r,
		APIKey:   *apiKey,
		Server:   strings.TrimSpace(*server),
		Question: strings.Join(cmd.Args(), " "),
	}, nil
}

func runAsk(ctx context.Context, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	opts, err := parseAskArgs(args)
	if err != nil {
		return err
	}
	if opts.APIKey == "" {
		opts.APIKey, err = stdinCredentials().read()
		if err != nil {
			return err
		}
	}

	var text string
	if opts.Server != "" {
		text, err = askRemote(ctx, opts)
	} else {
		text, err = askLocal(ctx, cfg, logger, opts)
	}
	if err != nil {
		return err
	}

	if flags.JSON {
		printJSON(os.Stdout, map[string]string{"role": string(opts.Role), "answer": text})
		return nil
	}
	fmt.Println(text)
	return nil
}

func askLocal(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts askOptions) (string, error) {
	a, err := newApp(cfg, logger)
	if err != nil {
		return "", err
	}
	defer a.Close()

	ans, err := a.service.Ask(ctx, query.Request{
		Credential: opts.APIKey,
		Role:       opts.Role,
		Question:   opts.Question,
	})
	if err != nil {
		return "", err
	}
	return ans.Text, nil
}

// dialServer connects to the MCP endpoint of a running adminqa server.
func dialServer(url string) (*adminmcp.Client, error) {
	client, err := adminmcp.NewClientWithStreamableHTTP(url)
	if err != nil {
		return nil, NewCLIError(errors.New(errors.CodeInternal, "connect to "+url, err),
			"check that 'adminqa serve' is running and the URL ends in /mcp")
	}
	return client, nil
}

func askRemote(ctx context.Context, opts askOptions) (string, error) {
	client, err := dialServer(opts.Server)
	if err != nil {
		return "", err
	}
	defer client.Close()

	text, err := client.Ask(ctx, string(opts.Role), opts.Question, opts.APIKey)
	if err != nil {
		return "", errors.New(errors.CodeLLMError, "remote question failed", err)
	}
	return text, nil
}

// credentialSource reads the credential without echo when attached to a terminal.
type credentialSource struct {
	in       io.Reader
	fd       int
	terminal bool
	prompt   io.Writer
}

func stdinCredentials() credentialSource {
	fd := int(os.Stdin.Fd())
	return credentialSource{in: os.Stdin, fd: fd, terminal: term.IsTerminal(fd), prompt: os.Stderr}
}

func (c credentialSource) read() (string, error) {
	if c.terminal {
		fmt.Fprint(c.prompt, "Enter your OpenAI API Key: ")
		b, err := term.ReadPassword(c.fd)
		fmt.Fprintln(c.prompt)
		if err != nil {
			return "", fmt.Errorf("read credential: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runMCP(cfg *config.Config, logger *slog.Logger, args []string) error {
	if len(args) > 0 {
		return NewInvalidArgumentError("mcp", fmt.Sprintf("unexpected args: %v", args))
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("serving MCP on stdio", "tools", []string{adminmcp.ToolListRoles, adminmcp.ToolViewScope, adminmcp.ToolAskQuestion})
	return adminmcp.NewServer("adminqa", version, a.service).ServeStdio()
}
