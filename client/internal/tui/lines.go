package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/chatrelay/chatrelay/pkg/event"
)

// RunLines drives conv in line mode: every line read from in is sent as a
// message and every notice is printed to out. It returns when in is
// exhausted, the notices stream ends, or ctx is cancelled.
func RunLines(ctx context.Context, conv Conversation, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	notices := conv.Notices()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil

		case text := <-lines:
			if text == "" {
				continue
			}
			if err := conv.Send(text); err != nil {
				fmt.Fprintf(out, "* send failed: %v\n", err) //nolint:errcheck
			}

		case n, ok := <-notices:
			if !ok {
				return nil
			}
			var line string
			switch ev := n.Event.(type) {
			case event.SendMessage:
				line = formatMessage(ev)
			case event.UpdateUsers:
				line = formatUsers(ev)
			case nil:
				line = formatState(n)
			}
			if _, err := fmt.Fprintln(out, line); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
	}
}
