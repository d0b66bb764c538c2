package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/haasonsaas/neurodraws/internal/actions"
	"github.com/haasonsaas/neurodraws/internal/neuro"
)

// unregisterTimeout bounds the farewell message sent on shutdown.
const unregisterTimeout = time.Second

// LoopConfig configures a Loop.
type LoopConfig struct {
	// Game is the game name sent with every outbound message.
	Game string
	// AnnounceStartup sends the startup command before registering.
	AnnounceStartup bool
}

// Loop drives one Neuro connection: it registers the action catalog and then
// handles inbound messages strictly in arrival order.
type Loop struct {
	config     LoopConfig
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewLoop creates a loop around dispatcher.
func NewLoop(config LoopConfig, dispatcher *Dispatcher, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		config:     config,
		dispatcher: dispatcher,
		logger:     logger.With("component", "dispatch-loop"),
	}
}

// Serve runs until the channel fails or ctx is cancelled. Channel failures are
// returned as *neuro.ChannelError. On cancellation the catalog is
// unregistered on a best-effort basis and ctx.Err() is returned.
func (l *Loop) Serve(ctx context.Context, ch neuro.Channel) error {
	if l.config.AnnounceStartup {
		msg, err := neuro.NewMessage(neuro.CommandStartup, l.config.Game, nil)
		if err != nil {
			return err
		}
		if err := l.send(ctx, ch, msg); err != nil {
			return l.finish(ctx, ch, err)
		}
	}
	if err := l.register(ctx, ch); err != nil {
		return l.finish(ctx, ch, err)
	}
	l.logger.Info("actions registered", "game", l.config.Game, "actions", actions.Names())

	for {
		msg, err := ch.Receive(ctx)
		if err != nil {
			return l.finish(ctx, ch, asChannelError("receive", err))
		}
		if err := l.handle(ctx, ch, msg); err != nil {
			return l.finish(ctx, ch, err)
		}
	}
}

func (l *Loop) handle(ctx context.Context, ch neuro.Channel, msg neuro.Message) error {
	switch msg.Command {
	case neuro.CommandAction:
		action, err := neuro.DecodeAction(msg)
		if err != nil {
			return &neuro.ChannelError{Op: "decode", Err: err}
		}
		result := l.dispatcher.Dispatch(ctx, Invocation{
			ID:     action.ID,
			Name:   action.Name,
			Params: action.Data,
		})
		if !result.Success {
			l.logger.Warn("action rejected", "id", result.ID, "action", action.Name, "reason", result.Message)
		}
		reply, err := neuro.NewMessage(neuro.CommandActionResult, l.config.Game, neuro.ResultData{
			ID:      result.ID,
			RawID:   action.RawID,
			Success: result.Success,
			Message: result.Message,
		})
		if err != nil {
			return err
		}
		return l.send(ctx, ch, reply)

	case neuro.CommandReregisterAll:
		l.logger.Info("re-registering actions")
		return l.register(ctx, ch)

	default:
		l.logger.Debug("ignoring message", "command", msg.Command)
		return nil
	}
}

func (l *Loop) register(ctx context.Context, ch neuro.Channel) error {
	msg, err := actions.BuildRegistration(l.config.Game)
	if err != nil {
		return err
	}
	return l.send(ctx, ch, msg)
}

func (l *Loop) send(ctx context.Context, ch neuro.Channel, msg neuro.Message) error {
	if err := ch.Send(ctx, msg); err != nil {
		return asChannelError("send", err)
	}
	return nil
}

func asChannelError(op string, err error) error {
	var cerr *neuro.ChannelError
	if errors.As(err, &cerr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &neuro.ChannelError{Op: op, Err: err}
}

// finish converts err into the value Serve returns. A cancelled context wins
// over whatever error the channel produced while shutting down.
func (l *Loop) finish(ctx context.Context, ch neuro.Channel, err error) error {
	if ctx.Err() == nil {
		return err
	}

	msg, buildErr := actions.BuildUnregister(l.config.Game)
	if buildErr == nil {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unregisterTimeout)
		defer cancel()
		if sendErr := ch.Send(sendCtx, msg); sendErr != nil {
			l.logger.Debug("unregister on shutdown failed", "error", sendErr)
		}
	}
	return ctx.Err()
}
