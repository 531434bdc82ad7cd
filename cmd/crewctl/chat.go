package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/workflow"
)

func chatCmd(c *cli) *cobra.Command {
	var (
		phone string
		name  string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal as one actor",
		Long: `chat reads one message per line and prints the assistant's reply. Lines
starting with "/photo <url>" send an image attachment with the rest of the
line as its caption. End with Ctrl-D or /quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return chat(cmd, c.app.Engine, phone, name, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "351900000000", "actor phone used as identity")
	cmd.Flags().StringVar(&name, "name", "", "display name offered on first contact")
	return cmd
}

func chat(cmd *cobra.Command, engine *workflow.Engine, phone, name string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "chatting as %s, /quit to leave\n", phone)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}

		msg := message.Inbound{ActorID: phone, Text: line, NameHint: name}
		if rest, ok := strings.CutPrefix(line, "/photo "); ok {
			url, caption, _ := strings.Cut(strings.TrimSpace(rest), " ")
			msg.Text = strings.TrimSpace(caption)
			msg.Media = &message.Media{URL: url, MimeType: "image/jpeg", Caption: msg.Text}
		}

		reply, err := engine.Handle(cmd.Context(), msg)
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		fmt.Fprintln(out, message.Render(reply))
		fmt.Fprintln(out)
	}
}
