package queue

// QueueType defines the type of queue implementation
type QueueType string

const (
	QueueTypeEmbedded QueueType = "embedded" // Embedded NATS for dev
	QueueTypeNATS     QueueType = "nats"     // External NATS
)

// Factory creates queue implementations
type Factory struct {
	config *Config
}

// NewFactory creates a new queue factory
func NewFactory(cfg *Config) *Factory {
	return &Factory{config: cfg}
}

// Type returns the configured queue type
func (f *Factory) Type() QueueType {
	return QueueType(f.config.Type)
}

// IsEmbedded returns true if using embedded NATS
func (f *Factory) IsEmbedded() bool {
	return f.config.Type == "embedded" || f.config.Type == ""
}

// IsNATS returns true if using external NATS
func (f *Factory) IsNATS() bool {
	return f.config.Type == "nats"
}

// Config returns the queue configuration
func (f *Factory) Config() *Config {
	return f.config
}

// DefaultConfig returns default queue configuration
func DefaultConfig() *Config {
	return &Config{
		Type:    "embedded",
		DataDir: "./data/nats",
		NATS: NATSConfig{
			StreamName:   "TRIGGERSTORE",
			ConsumerName: "triggerstore-observer",
			Subjects:     []string{"queuestate.>"},
		},
	}
}

