package bridge

import (
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
)

// Host receives decoded commands
type Host interface {
	// AppLoaded: the hosted application finished its own initialization
	AppLoaded()
	// PageLoaded: a document loaded without the application (e.g. login)
	PageLoaded(url string)
	// ChangeUIVersion: the page asked for a different interface generation
	ChangeUIVersion(version types.UIVersion)
}

// Router decodes payloads and dispatches them to a Host
type Router struct {
	host    Host
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewRouter creates a router for host
func NewRouter(host Host, logger *zap.Logger, metrics *monitoring.Metrics) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{host: host, logger: logger, metrics: metrics}
}

// Receive handles one payload from the channel. Malformed and unknown
// messages are dropped.
func (r *Router) Receive(channel, payload string) {
	if channel != Channel {
		r.logger.Debug("message on foreign channel dropped", zap.String("channel", channel))
		return
	}

	msg, err := Parse(payload)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		r.logger.Debug("unrecognized bridge command ignored", zap.String("command", string(msg.Command)))
		r.metrics.RecordBridgeMessage("unknown", "ignored")
		return
	case err != nil:
		r.metrics.RecordBridgeMessage("empty", "ignored")
		return
	}

	r.Dispatch(msg)
}

// Dispatch routes a decoded message. It returns false when the message was
// ignored.
func (r *Router) Dispatch(msg Message) bool {
	switch msg.Command {
	case CommandAppLoaded:
		r.host.AppLoaded()

	case CommandPageLoaded:
		r.host.PageLoaded(msg.Arg(0))

	case CommandChangeUIVersion:
		version, err := types.ParseUIVersion(msg.Arg(0))
		if err != nil {
			r.logger.Debug("ui version change ignored",
				zap.String("argument", msg.Arg(0)),
				zap.Error(errors.Join(ErrInvalidArgument, err)),
			)
			r.metrics.RecordBridgeMessage(string(msg.Command), "invalid")
			return false
		}
		r.host.ChangeUIVersion(version)

	default:
		r.metrics.RecordBridgeMessage("unknown", "ignored")
		return false
	}

	r.logger.Debug("bridge command handled", zap.String("message", msg.String()))
	r.metrics.RecordBridgeMessage(string(msg.Command), "handled")
	return true
}
