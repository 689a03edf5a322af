package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"gopherscope/host/scope"
	"gopherscope/host/serial"
)

// openClient connects to the device named by the connection settings
func openClient(ctx context.Context) (*scope.Client, string, error) {
	conn, info, err := openConnection(ctx)
	if err != nil {
		return nil, "", err
	}
	c := scope.NewClient(conn,
		scope.WithLogger(log.Logger.With().Str("component", "client").Logger()),
		scope.WithReplyTimeout(cfg.ReplyTimeout()),
	)
	log.Info().Str("connection", info).Msg("connected")
	return c, info, nil
}

// openConnection opens either a serial or WebSocket connection; the URL
// wins when both are set
func openConnection(ctx context.Context) (io.ReadWriteCloser, string, error) {
	cc := cfg.Connection
	if cc.URL != "" {
		password := ""
		if cc.Username != "" {
			var err error
			password, err = serial.GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		port, err := serial.DialWebSocket(ctx, cc.URL, cc.Username, password, cc.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return port, fmt.Sprintf("WebSocket: %s", cc.URL), nil
	}

	if cc.Port != "" {
		port, err := serial.Open(cfg.SerialConfig())
		if err != nil {
			return nil, "", err
		}
		if err := port.Flush(); err != nil {
			log.Warn().Err(err).Msg("flush failed")
		}
		return port, fmt.Sprintf("Serial: %s @ %d baud", cc.Port, cc.Baud), nil
	}

	return nil, "", errors.New("either --port or --url must be specified")
}
