package events

import "context"

// NoopPublisher drops every event. resource.New falls back to it when given
// a nil Publisher.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (*NoopPublisher) Close() error { return nil }
