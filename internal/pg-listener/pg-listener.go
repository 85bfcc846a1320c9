package pg_listener

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const (
	defaultMinReconnect = 10 * time.Second
	defaultMaxReconnect = time.Minute
	defaultPingInterval = 90 * time.Second
)

// NotificationHandler is called for every notification on the channel, and
// once with an empty payload after each reconnect since notifications sent
// while disconnected are lost.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, channel, payload string) error
}

// HandlerFunc adapts a function to NotificationHandler.
type HandlerFunc func(ctx context.Context, channel, payload string) error

func (f HandlerFunc) HandleNotification(ctx context.Context, channel, payload string) error {
	return f(ctx, channel, payload)
}

type ListenerConfig struct {
	PgConnStr    string
	Channel      string
	MinReconnect time.Duration
	MaxReconnect time.Duration
	PingInterval time.Duration
}

type DBListener struct {
	config   ListenerConfig
	handler  NotificationHandler
	listener *pq.Listener
	wg       sync.WaitGroup
}

func NewDBListener(config ListenerConfig, handler NotificationHandler) *DBListener {
	if config.MinReconnect <= 0 {
		config.MinReconnect = defaultMinReconnect
	}
	if config.MaxReconnect <= 0 {
		config.MaxReconnect = defaultMaxReconnect
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaultPingInterval
	}
	return &DBListener{
		config:  config,
		handler: handler,
	}
}

// Start subscribes to the channel and dispatches notifications until ctx is
// done or Close is called.
func (d *DBListener) Start(ctx context.Context) error {
	if d.config.Channel == "" {
		return errors.New("listener channel is required")
	}
	d.listener = pq.NewListener(d.config.PgConnStr, d.config.MinReconnect, d.config.MaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logrus.WithField("channel", d.config.Channel).Warnf("postgres listener error: %v", err)
		}
	})
	if err := d.listener.Listen(d.config.Channel); err != nil {
		_ = d.listener.Close()
		return err
	}
	logrus.WithField("channel", d.config.Channel).Info("listening for postgres notifications")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case notification, ok := <-d.listener.Notify:
				if !ok {
					return
				}
				d.dispatch(ctx, notification)
			case <-time.After(d.config.PingInterval):
				if err := d.listener.Ping(); err != nil {
					logrus.WithField("channel", d.config.Channel).Warnf("postgres listener ping failed: %v", err)
				}
			}
		}
	}()
	return nil
}

// dispatch hands a notification to the handler. pq delivers nil after a
// reconnect.
func (d *DBListener) dispatch(ctx context.Context, notification *pq.Notification) {
	channel, payload := d.config.Channel, ""
	if notification != nil {
		channel, payload = notification.Channel, notification.Extra
	}
	if err := d.handler.HandleNotification(ctx, channel, payload); err != nil {
		logrus.WithField("channel", channel).Errorf("error handling notification: %v", err)
	}
}

// Close stops listening and waits for the dispatch loop to exit.
func (d *DBListener) Close() error {
	if d.listener == nil {
		return nil
	}
	err := d.listener.Close()
	d.wg.Wait()
	return err
}
