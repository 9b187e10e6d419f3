package publishers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
)

// Sink types.
const (
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "gcp_pubsub"
	TypeHTTP   = "http"
)

const defaultHTTPTimeoutSeconds = 5

// SinkConfig is one entry of the publishers file.
type SinkConfig struct {
	ID      string `yaml:"id"`
	Type    string `yaml:"type"`
	Enabled *bool  `yaml:"enabled"`
	// Sources limits the sink to pages' articles from these vendors.
	Sources []domain.SourceID `yaml:"sources"`

	SQS    *SQSConfig    `yaml:"sqs"`
	SNS    *SNSConfig    `yaml:"sns"`
	PubSub *PubSubConfig `yaml:"gcp_pubsub"`
	HTTP   *HTTPConfig   `yaml:"http"`
}

// AWSAuthConfig optionally pins static credentials and an endpoint (e.g. LocalStack).
// Empty keys fall back to the default AWS credential chain.
type AWSAuthConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	Endpoint        string `yaml:"endpoint"`
}

// SQSConfig targets an SQS queue.
type SQSConfig struct {
	QueueURL      string `yaml:"uri"`
	AWSAuthConfig `yaml:",inline"`
}

// SNSConfig targets an SNS topic.
type SNSConfig struct {
	TopicARN      string `yaml:"topic_arn"`
	AWSAuthConfig `yaml:",inline"`
}

// PubSubConfig targets a Google Cloud Pub/Sub topic.
type PubSubConfig struct {
	ProjectID       string `yaml:"project_id"`
	Topic           string `yaml:"topic"`
	CredentialsFile string `yaml:"credentials_file"`
}

// HTTPConfig targets a webhook.
type HTTPConfig struct {
	URL            string            `yaml:"url"`
	Method         string            `yaml:"method"`
	Headers        map[string]string `yaml:"headers"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
}

// LoadConfig reads the publishers YAML file and returns the enabled sinks.
// Unknown keys are rejected.
func LoadConfig(path string) ([]SinkConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file struct {
		Publishers []SinkConfig `yaml:"publishers"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse publishers file: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	seen := make(map[string]bool, len(file.Publishers))
	enabled := make([]SinkConfig, 0, len(file.Publishers))
	for i, cfg := range file.Publishers {
		cfg.normalize()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if seen[cfg.ID] {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = true
		if cfg.Enabled == nil || *cfg.Enabled {
			enabled = append(enabled, cfg)
		}
	}
	return enabled, nil
}

func (c *SinkConfig) normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	c.Sources = domain.ParseSourceIDs(sourceStrings(c.Sources)...)

	if c.SQS != nil {
		c.SQS.QueueURL = strings.TrimSpace(c.SQS.QueueURL)
		c.SQS.AWSAuthConfig.normalize()
	}
	if c.SNS != nil {
		c.SNS.TopicARN = strings.TrimSpace(c.SNS.TopicARN)
		c.SNS.AWSAuthConfig.normalize()
	}
	if c.PubSub != nil {
		c.PubSub.ProjectID = strings.TrimSpace(c.PubSub.ProjectID)
		c.PubSub.Topic = strings.TrimSpace(c.PubSub.Topic)
		c.PubSub.CredentialsFile = strings.TrimSpace(c.PubSub.CredentialsFile)
	}
	if c.HTTP != nil {
		c.HTTP.URL = strings.TrimSpace(c.HTTP.URL)
		c.HTTP.Method = strings.ToUpper(strings.TrimSpace(c.HTTP.Method))
		if c.HTTP.Method == "" {
			c.HTTP.Method = http.MethodPost
		}
		if c.HTTP.TimeoutSeconds <= 0 {
			c.HTTP.TimeoutSeconds = defaultHTTPTimeoutSeconds
		}
		headers := make(map[string]string, len(c.HTTP.Headers))
		for k, v := range c.HTTP.Headers {
			if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
				headers[k] = v
			}
		}
		c.HTTP.Headers = headers
	}
}

func (a *AWSAuthConfig) normalize() {
	a.Region = strings.TrimSpace(a.Region)
	a.AccessKeyID = strings.TrimSpace(a.AccessKeyID)
	a.SecretAccessKey = strings.TrimSpace(a.SecretAccessKey)
	a.SessionToken = strings.TrimSpace(a.SessionToken)
	a.Endpoint = strings.TrimSpace(a.Endpoint)
}

func (c SinkConfig) validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	for _, id := range c.Sources {
		if !slices.Contains(domain.AllSources(), id) {
			return fmt.Errorf("publisher %q lists unknown source %q", c.ID, id)
		}
	}

	missing := func(field string) error {
		return fmt.Errorf("%s.%s is required for publisher %q", c.Type, field, c.ID)
	}
	switch c.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", c.ID)
	case TypeSQS:
		switch {
		case c.SQS == nil || c.SQS.QueueURL == "":
			return missing("uri")
		case c.SQS.Region == "":
			return missing("region")
		}
	case TypeSNS:
		switch {
		case c.SNS == nil || c.SNS.TopicARN == "":
			return missing("topic_arn")
		case c.SNS.Region == "":
			return missing("region")
		}
	case TypePubSub:
		switch {
		case c.PubSub == nil || c.PubSub.ProjectID == "":
			return missing("project_id")
		case c.PubSub.Topic == "":
			return missing("topic")
		}
	case TypeHTTP:
		if c.HTTP == nil || c.HTTP.URL == "" {
			return missing("url")
		}
	default:
		return fmt.Errorf("unsupported type %q for publisher %q", c.Type, c.ID)
	}
	return nil
}

func sourceStrings(ids []domain.SourceID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
