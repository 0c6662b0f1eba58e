// Package rabbitmq dials the AMQP 0-9-1 connection used by the rabbitmq queue driver.
package rabbitmq

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ncobase/paybatch/data/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// URL builds the AMQP URL from cfg. A URL field without a scheme is treated
// as host:port and combined with the credentials and vhost.
func URL(cfg *config.RabbitMQ) (string, error) {
	if cfg == nil || cfg.URL == "" {
		return "", fmt.Errorf("rabbitmq: URL is empty")
	}

	connURL := cfg.URL
	if strings.HasPrefix(connURL, "amqp://") || strings.HasPrefix(connURL, "amqps://") {
		return connURL, nil
	}

	u := url.URL{Scheme: "amqp", Host: connURL}
	if cfg.Username != "" || cfg.Password != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	if cfg.Vhost != "" {
		u.Path = "/" + strings.TrimPrefix(cfg.Vhost, "/")
	}
	return u.String(), nil
}

// Dial opens an AMQP connection.
func Dial(cfg *config.RabbitMQ) (*amqp.Connection, error) {
	connURL, err := URL(cfg)
	if err != nil {
		return nil, err
	}

	amqpCfg := amqp.Config{
		Heartbeat: cfg.HeartbeatInterval,
		Locale:    "en_US",
	}
	if cfg.ConnectionTimeout > 0 {
		amqpCfg.Dial = amqp.DefaultDial(cfg.ConnectionTimeout)
	}

	conn, err := amqp.DialConfig(connURL, amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: failed to connect: %w", err)
	}
	return conn, nil
}
