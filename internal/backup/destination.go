package backup

import "context"

// Destination is the interface for a backup target (S3, git, directory).
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write stores the JSONL payload.
	Write(ctx context.Context, data []byte) error
}
