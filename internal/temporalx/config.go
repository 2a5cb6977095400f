package temporalx

import (
	"strings"
	"time"
)

type Config struct {
	Address   string
	Namespace string
	// AITaskQueue is the queue the AI worker polls for lesson generation jobs.
	AITaskQueue string
	// GenerationWorkflow is the workflow type the AI worker registers.
	GenerationWorkflow string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	DialTimeout    time.Duration
	DialMaxWait    time.Duration
	DialBackoff    time.Duration
	DialBackoffMax time.Duration

	AutoRegisterNamespace bool
	NamespaceRetention    time.Duration
}

func (c Config) Enabled() bool { return strings.TrimSpace(c.Address) != "" }

func (c Config) WithDefaults() Config {
	c.Namespace = stringsOr(c.Namespace, "lessonforge")
	c.AITaskQueue = stringsOr(c.AITaskQueue, "lesson-ai")
	c.GenerationWorkflow = stringsOr(c.GenerationWorkflow, "LessonGenerationJob")
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.DialMaxWait < 0 {
		c.DialMaxWait = 0
	}
	if c.DialBackoff <= 0 {
		c.DialBackoff = 250 * time.Millisecond
	}
	if c.DialBackoffMax <= 0 {
		c.DialBackoffMax = 5 * time.Second
	}
	if c.NamespaceRetention <= 0 {
		c.NamespaceRetention = 7 * 24 * time.Hour
	}
	return c
}

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

func stringsOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
