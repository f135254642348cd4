package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	isatty "github.com/mattn/go-isatty"
	"github.com/vitae-sh/vitae/backend"
	"go.uber.org/fx"
)

type runCmd struct{}

type versionCmd struct{}

type loginCmd struct{}

type logoutCmd struct{}

var program *tea.Program

var cli struct {
	Version versionCmd `cmd:"version" help:"Print version information"`
	Login   loginCmd   `cmd:"login" help:"Store the resume service API key"`
	Logout  logoutCmd  `cmd:"logout" help:"Remove the stored API key"`
	Prompt  string     `short:"p" help:"Send a single command and print the response"`
	Debug   bool       `help:"Enable debug logging"`
	Run     runCmd     `cmd:"" default:"1" help:"Run the interactive application"`
}

// Update the version as part of the version release process
var version = "0.1.0"

func (v versionCmd) Run() error {
	fmt.Printf("vitae v%s\n", version)
	return nil
}

func (l loginCmd) Run() error {
	fmt.Print("Paste your resume service API key: ")
	reader := bufio.NewReader(os.Stdin)
	key, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("no API key entered")
	}
	if err := SaveAPIKey(key); err != nil {
		return err
	}
	fmt.Println("API key saved.")
	return nil
}

func (l logoutCmd) Run() error {
	if err := DeleteAPIKeyFromKeyring(); err != nil {
		return err
	}
	fmt.Println("API key removed.")
	return nil
}

func (r *runCmd) Run() error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Println("This program requires a terminal to run.")
		fmt.Println("Use -p to send a single command non-interactively.")
		return nil
	}

	var prog *tea.Program
	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			ProvideLogger,
			ProvideConfig,
			ProvideStorage,
			ProvideHistoryStore,
			ProvideClient,
			ProvideConversation,
			ProvideTUIModel,
			StartTUI,
		),
		fx.Populate(&prog),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	_, runErr := prog.Run()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
	}

	if runErr != nil {
		return fmt.Errorf("alas, there's been an error: %w", runErr)
	}
	return nil
}

func main() {
	ctx := kong.Parse(&cli)

	if cli.Prompt != "" {
		if err := runOnce(cli.Prompt); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runOnce sends a single command and streams the response to stdout.
func runOnce(prompt string) error {
	if _, err := ProvideLogger(); err != nil {
		return err
	}

	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	client := backend.NewClient(
		config.Service.BaseURL,
		config.Service.APIKey,
		time.Duration(config.Service.TimeoutSeconds)*time.Second,
	)

	done := make(chan struct{})
	var conv *Conversation
	printed := 0

	conv = NewConversation(client, func(m any) {
		switch v := m.(type) {
		case turnUpdatedMsg:
			turns := conv.Turns()
			last := turns[len(turns)-1]
			if last.Role == RoleAssistant && len(last.Content) > printed {
				fmt.Print(last.Content[printed:])
				printed = len(last.Content)
			}
		case streamCompleteMsg:
			fmt.Println()
			close(done)
		case streamInterruptedMsg:
			fmt.Println("\n[stopped]")
			close(done)
		case streamErrorMsg:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", v.err)
			close(done)
		}
	})

	ctx := context.Background()
	if doc, err := client.FetchResume(ctx); err == nil {
		conv.SetDocumentContext(doc, jobContextFromConfig(config))
	} else {
		fmt.Fprintf(os.Stderr, "Warning: could not load resume: %v\n", err)
	}

	if err := conv.Submit(ctx, prompt); err != nil {
		return err
	}
	<-done

	if t := conv.ActionableTurn(); t != nil {
		fmt.Println("\nProposed changes:")
		for _, d := range t.Proposal.Diffs {
			fmt.Println("  " + renderDiffEntry(d))
		}
		fmt.Println("Run vitae interactively to apply them.")
	}
	return nil
}

// jobContextFromConfig converts the configured job section, if any was set.
func jobContextFromConfig(config *Config) *backend.JobContext {
	j := config.Job
	if j.Title == "" && j.Company == "" && j.Description == "" {
		return nil
	}
	return &backend.JobContext{
		Title:       j.Title,
		Company:     j.Company,
		Description: j.Description,
	}
}
