package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggonzalez94/gud-quote/internal/dialog"
	"github.com/ggonzalez94/gud-quote/internal/out"
)

// newChatCommand runs the selection dialog over stdin/stdout. A line is either the
// number of an option from the last reply, a raw callback payload such as
// "network:mainnet", or one of swap, back, quit.
func (s *runtimeState) newChatCommand() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive network and pair selection with live quotes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(sessionID) == "" {
				sessionID = uuid.NewString()
			}
			defaults := s.quoteDefaults()
			sessions := dialog.NewSessions(func() *dialog.Machine {
				return dialog.NewMachine(s.registry, s.pricing, defaults, s.log.With(zap.String("session", sessionID)))
			})
			defer sessions.Drop(sessionID)

			ctx := cmd.Context()
			reply := sessions.Handle(ctx, sessionID, dialog.EstimateRequested())
			if err := s.writeReply(reply); err != nil {
				return err
			}
			options := reply.Options

			scanner := bufio.NewScanner(s.runner.stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "quit" || line == "exit" {
					return nil
				}
				reply = sessions.Handle(ctx, sessionID, selectEvent(line, options))
				if err := s.writeReply(reply); err != nil {
					return err
				}
				// Notices leave the previous menu active.
				if !reply.Notice {
					options = reply.Options
				}
				if ctx.Err() != nil {
					return nil
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (default random)")
	return cmd
}

// selectEvent maps an input line to an event: a 1-based option index first, then
// a callback payload.
func selectEvent(line string, options []dialog.Option) dialog.Event {
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
		return options[n-1].Event
	}
	return dialog.ParseEvent(line)
}

func (s *runtimeState) writeReply(reply dialog.Reply) error {
	if s.settings.OutputMode == "json" {
		buf, err := json.Marshal(reply)
		if err != nil {
			return fmt.Errorf("encode reply: %w", err)
		}
		_, err = fmt.Fprintln(s.runner.stdout, string(buf))
		return err
	}
	return out.RenderReply(s.runner.stdout, reply)
}
