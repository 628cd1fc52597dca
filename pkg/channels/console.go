package channels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/wishlist"
)

// ConsoleChatID is the single endpoint id the console exposes.
const ConsoleChatID = "direct"

// ConsoleChannel is a local readline endpoint for development and
// smoke-testing without any chat credentials. Typing "claim:<id>" or
// "unclaim:<id>" simulates a button press.
type ConsoleChannel struct {
	*BaseChannel
	rl     *readline.Instance
	cancel context.CancelFunc
}

func NewConsoleChannel(mb *bus.MessageBus) *ConsoleChannel {
	return &ConsoleChannel{
		BaseChannel: NewBaseChannel("console", mb),
	}
}

func (c *ConsoleChannel) Start(ctx context.Context) error {
	rl, err := readline.New("wishbot> ")
	if err != nil {
		return fmt.Errorf("console readline init: %w", err)
	}
	c.rl = rl

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.readLoop(runCtx)
	c.SetRunning(true)
	return nil
}

func (c *ConsoleChannel) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.SetRunning(false)
	if c.rl != nil {
		return c.rl.Close()
	}
	return nil
}

func (c *ConsoleChannel) readLoop(ctx context.Context) {
	for {
		line, err := c.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.ErrorCF("console", "read failed", map[string]any{"error": err.Error()})
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "claim:") || strings.HasPrefix(line, "unclaim:") {
			c.HandleCallback(ConsoleChatID, "console", "Console", line)
			continue
		}
		c.HandleText(ConsoleChatID, "console", "Console", line)
	}
}

func (c *ConsoleChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if c.rl == nil {
		return fmt.Errorf("console channel not started")
	}

	out := c.rl.Stdout()
	fmt.Fprintln(out, msg.Text)
	if msg.Controls != nil {
		fmt.Fprintf(out, "  [type %s or %s]\n",
			wishlist.ClaimPayload(msg.Controls.ItemID),
			wishlist.UnclaimPayload(msg.Controls.ItemID))
	}
	if msg.ShowMenu {
		fmt.Fprintf(out, "  [commands: %s]\n", strings.Join(menuCommands, " "))
	}
	return nil
}
