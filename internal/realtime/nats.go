package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const natsSubjectPrefix = "forum.realtime."

func NewNATSConn(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("error connecting to nats: %w", err)
	}
	return nc, nil
}

type NATSPublisher struct {
	nc *nats.Conn
}

func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) Publish(ctx context.Context, group string, ev models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encodeEnvelope(group, ev)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(natsSubject(group), body); err != nil {
		return fmt.Errorf("failed to publish to nats subject %s: %w", natsSubject(group), err)
	}
	return nil
}

// RunNATSBridge replays every realtime subject into hub until ctx is done.
func RunNATSBridge(ctx context.Context, nc *nats.Conn, hub *Hub, logger *zap.Logger) error {
	sub, err := nc.Subscribe(natsSubjectPrefix+">", func(msg *nats.Msg) {
		env, err := decodeEnvelope(msg.Data)
		if err != nil {
			logger.Warn("dropping realtime message", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		hub.Publish(ctx, env.Group, env.Event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to nats realtime subjects: %w", err)
	}
	logger.Info("realtime nats bridge started", zap.String("subject", sub.Subject))

	<-ctx.Done()
	return sub.Unsubscribe()
}

// natsSubject keeps group names usable as a single subject token.
func natsSubject(group string) string {
	return natsSubjectPrefix + strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(group)
}
