// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package telemetry

import (
	"context"
	"net"
	"sync"

	"github.com/eclipse/paho.golang/paho"
)

type (
	// Message is one MQTT message as seen by the bridge.
	Message struct {
		Topic           string
		Payload         []byte
		ResponseTopic   string
		CorrelationData []byte
	}

	// Client is the narrow MQTT surface the bridge needs.
	Client interface {
		Publish(ctx context.Context, msg *Message) error
		Subscribe(
			ctx context.Context,
			topic string,
			handler func(ctx context.Context, msg *Message),
		) error
	}

	// PahoClient adapts a paho v5 client to the bridge's Client interface.
	PahoClient struct {
		client *paho.Client

		mu       sync.RWMutex
		handlers map[string][]func(ctx context.Context, msg *Message)
	}
)

// NewPahoClient wraps an established network connection in an MQTT client.
// Connect must be called before use.
func NewPahoClient(conn net.Conn, clientID string) *PahoClient {
	c := &PahoClient{
		handlers: map[string][]func(ctx context.Context, msg *Message){},
	}
	c.client = paho.NewClient(paho.ClientConfig{
		ClientID: clientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pub paho.PublishReceived) (bool, error) {
				c.dispatch(pub.Packet)
				return true, nil
			},
		},
	})
	return c
}

// Connect performs the MQTT connect handshake.
func (c *PahoClient) Connect(ctx context.Context) error {
	_, err := c.client.Connect(ctx, &paho.Connect{
		ClientID:   c.client.ClientID(),
		KeepAlive:  5,
		CleanStart: true,
	})
	return err
}

// Disconnect closes the connection.
func (c *PahoClient) Disconnect() error {
	return c.client.Disconnect(&paho.Disconnect{})
}

func (c *PahoClient) Publish(ctx context.Context, msg *Message) error {
	_, err := c.client.Publish(ctx, &paho.Publish{
		QoS:     1,
		Topic:   msg.Topic,
		Payload: msg.Payload,
		Properties: &paho.PublishProperties{
			ContentType:     "application/json",
			ResponseTopic:   msg.ResponseTopic,
			CorrelationData: msg.CorrelationData,
		},
	})
	return err
}

func (c *PahoClient) Subscribe(
	ctx context.Context,
	topic string,
	handler func(ctx context.Context, msg *Message),
) error {
	c.mu.Lock()
	c.handlers[topic] = append(c.handlers[topic], handler)
	c.mu.Unlock()

	_, err := c.client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{
			Topic: topic,
			QoS:   1,
		}},
	})
	return err
}

func (c *PahoClient) dispatch(p *paho.Publish) {
	msg := &Message{
		Topic:   p.Topic,
		Payload: p.Payload,
	}
	if p.Properties != nil {
		msg.ResponseTopic = p.Properties.ResponseTopic
		msg.CorrelationData = p.Properties.CorrelationData
	}

	c.mu.RLock()
	handlers := c.handlers[p.Topic]
	c.mu.RUnlock()

	ctx := context.Background()
	for _, handle := range handlers {
		handle(ctx, msg)
	}
}
