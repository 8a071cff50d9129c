package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/boto/internal/dispatch"
	"github.com/aretw0/boto/internal/presentation/tui"
	"github.com/aretw0/boto/pkg/domain"
)

// Handler handles one inbound text for a phone.
type Handler interface {
	Handle(ctx context.Context, phone, text string) (dispatch.Result, error)
}

// ChatOptions configure a terminal conversation.
type ChatOptions struct {
	Phone  string
	In     io.Reader
	Out    io.Writer
	Render tui.RenderFunc
	// ShowState prints the dialogue state after every reply.
	ShowState bool
}

const chatHelp = "Commands: /state, /quit"

// Chat plays the part of WhatsApp: every line read from In is handled as a
// message from Phone and the reply is written to Out. It returns when In is
// exhausted, /quit is typed or ctx is done.
func Chat(ctx context.Context, h Handler, opts ChatOptions) error {
	if opts.Render == nil {
		opts.Render = tui.Plain
	}
	if opts.Phone == "" {
		return fmt.Errorf("chat: phone must not be empty")
	}

	fmt.Fprintf(opts.Out, "Talking as %s. %s\n", opts.Phone, chatHelp)

	var last domain.State
	scanner := bufio.NewScanner(opts.In)
	for {
		fmt.Fprint(opts.Out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(opts.Out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "/quit", "/exit":
			return nil
		case "/state":
			fmt.Fprintf(opts.Out, "[state] %s\n", stateOrUnknown(last))
			continue
		case "":
			continue
		}

		res, err := h.Handle(ctx, opts.Phone, line)
		if err != nil {
			fmt.Fprintf(opts.Out, "[error] %v\n", err)
		}
		last = res.State
		if err := printReply(opts, res.Reply); err != nil {
			return err
		}
		if opts.ShowState {
			fmt.Fprintf(opts.Out, "[state] %s\n", stateOrUnknown(last))
		}
	}
}

func printReply(opts ChatOptions, reply domain.Reply) error {
	if reply.Body == "" {
		return nil
	}
	out, err := opts.Render(reply.Body)
	if err != nil {
		return fmt.Errorf("failed to render reply: %w", err)
	}
	fmt.Fprint(opts.Out, out)
	for i, b := range reply.Buttons {
		fmt.Fprintf(opts.Out, "  [%d] %s\n", i+1, b.Title)
	}
	return nil
}

func stateOrUnknown(s domain.State) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}
