package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/boat-builder/threadchat"
	"github.com/boat-builder/threadchat/client"
)

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

func newChatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively; the thread is kept across runs",
		Long: `Chat reads one message per line and prints the assistant's reply.

Commands: /reset starts a new conversation, /quit exits.
Ctrl-C while waiting stops waiting; the reply is shown once it arrives.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL, _ := cmd.Flags().GetString("server"); serverURL != "" {
				a.cfg.ServerURL = serverURL
			}
			ctx := cmd.Context()

			var responder threadchat.Responder
			if a.cfg.ServerURL != "" {
				responder = client.New(a.cfg.ServerURL)
			} else {
				gen, err := a.newGenerator()
				if err != nil {
					return err
				}
				responder = gen
			}

			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			ctrl := threadchat.NewController(ctx, responder, store, threadchat.WithControllerLogger(a.logger))
			interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
			return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), ctrl, interactive, notifyInterrupt)
		},
	}
	cmd.Flags().String("server", "", "threadchat server URL (overrides THREADCHAT_SERVER_URL)")
	return cmd
}

// notifyInterrupt delivers Ctrl-C while a reply is pending. Outside that
// window Ctrl-C keeps its default behavior and ends the program.
func notifyInterrupt() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}

// runChat reads lines from in until EOF or /quit. A submission stopped with
// Ctrl-C keeps running in the background and its reply is printed with the
// next one; before returning, runChat waits for any such submission so its
// result reaches storage.
func runChat(ctx context.Context, in io.Reader, out io.Writer, ctrl *threadchat.Controller, interactive bool, interrupts func() (<-chan os.Signal, func())) error {
	if state := ctrl.State(); state.ThreadID != "" {
		fmt.Fprintln(out, noticeStyle.Render("continuing thread "+state.ThreadID))
	}

	var pending sync.WaitGroup
	shown := 0
	defer func() {
		pending.Wait()
		printNew(out, ctrl.State().Messages, shown)
	}()

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, promptStyle.Render("> "))
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "/quit":
			return nil
		case "/reset":
			ctrl.Reset(ctx)
			shown = 0
			fmt.Fprintln(out, noticeStyle.Render("started a new conversation"))
			continue
		}

		ctrl.ChangeInput(scanner.Text())
		done := make(chan struct{})
		pending.Add(1)
		go func() {
			defer pending.Done()
			defer close(done)
			ctrl.Submit(ctx)
		}()

		sigCh, stop := interrupts()
		select {
		case <-done:
		case <-sigCh:
			ctrl.Stop()
			fmt.Fprintln(out, noticeStyle.Render("stopped waiting"))
		}
		stop()

		shown = printNew(out, ctrl.State().Messages, shown)
	}
}

// printNew prints the assistant messages after index from and returns the
// new number of messages seen.
func printNew(out io.Writer, messages []threadchat.Message, from int) int {
	if from > len(messages) {
		from = 0
	}
	for _, msg := range messages[from:] {
		if msg.Role == threadchat.RoleAssistant {
			fmt.Fprintln(out, assistantStyle.Render(msg.Content))
		}
	}
	return len(messages)
}
