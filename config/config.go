/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_STAGE_NAME       = "PacketUploaderStage"
	DEFAULT_PACKET_EXTENSION = ".zip"
	DEFAULT_MAX_RETRY_COUNT  = 3
	DEFAULT_DIGEST_ALGORITHM = "sha256"
	DEFAULT_MONITORING_PORT  = "5004"
)

var ConfigStore atomic.Value

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"UPLOADER_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"UPLOADER_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"UPLOADER_REDIS_SKIP_TLS_VERIFY"`
}

// LandingZoneConfig points at the server that exposes packets uploaded by
// registration clients, one file per registration id.
type LandingZoneConfig struct {
	Url             string `json:"url" envconfig:"UPLOADER_LANDING_ZONE_URL"`
	PacketExtension string `json:"packet_extension" envconfig:"UPLOADER_PACKET_EXTENSION"`
	Timeout         int    `json:"timeout" envconfig:"UPLOADER_LANDING_ZONE_TIMEOUT"`
}

type ScannerConfig struct {
	Address   string `json:"address" envconfig:"UPLOADER_SCANNER_ADDRESS"`
	Timeout   int    `json:"timeout" envconfig:"UPLOADER_SCANNER_TIMEOUT"`
	ChunkSize int    `json:"chunk_size" envconfig:"UPLOADER_SCANNER_CHUNK_SIZE"`
}

type DecryptorConfig struct {
	Url     string            `json:"url" envconfig:"UPLOADER_DECRYPTOR_URL"`
	Timeout int               `json:"timeout" envconfig:"UPLOADER_DECRYPTOR_TIMEOUT"`
	Headers map[string]string `json:"headers"`
}

type PacketStoreConfig struct {
	Driver             string `json:"driver" envconfig:"UPLOADER_PACKET_STORE_DRIVER"`
	Dir                string `json:"dir" envconfig:"UPLOADER_PACKET_STORE_DIR"`
	S3Endpoint         string `json:"s3_endpoint" envconfig:"UPLOADER_S3_ENDPOINT"`
	S3BucketName       string `json:"s3_bucket_name" envconfig:"UPLOADER_S3_BUCKET_NAME"`
	S3Region           string `json:"s3_region" envconfig:"UPLOADER_S3_REGION"`
	AwsAccessKeyId     string `json:"aws_access_key_id" envconfig:"UPLOADER_AWS_ACCESS_KEY_ID"`
	AwsSecretAccessKey string `json:"aws_secret_access_key" envconfig:"UPLOADER_AWS_SECRET_ACCESS_KEY"`
	// ExistsMaxWaitMs bounds how long a freshly stored packet may take to
	// become visible to the existence check.
	ExistsMaxWaitMs int `json:"exists_max_wait_ms" envconfig:"UPLOADER_EXISTS_MAX_WAIT_MS"`
}

type StageConfig struct {
	Name            string `json:"name" envconfig:"UPLOADER_STAGE_NAME"`
	MaxRetryCount   int    `json:"max_retry_count" envconfig:"UPLOADER_MAX_RETRY_COUNT"`
	DigestAlgorithm string `json:"digest_algorithm" envconfig:"UPLOADER_DIGEST_ALGORITHM"`
}

type QueueConfig struct {
	UploadQueue       string `json:"upload_queue" envconfig:"UPLOADER_UPLOAD_QUEUE"`
	NextStageQueue    string `json:"next_stage_queue" envconfig:"UPLOADER_NEXT_STAGE_QUEUE"`
	RetryDelaySeconds int    `json:"retry_delay_seconds" envconfig:"UPLOADER_RETRY_DELAY_SECONDS"`
	Concurrency       int    `json:"concurrency" envconfig:"UPLOADER_QUEUE_CONCURRENCY"`
	LockTimeoutSec    int    `json:"lock_timeout_sec" envconfig:"UPLOADER_LOCK_TIMEOUT_SEC"`
	MonitoringPort    string `json:"monitoring_port" envconfig:"UPLOADER_MONITORING_PORT"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"UPLOADER_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type TracingConfig struct {
	Enabled     bool   `json:"enabled" envconfig:"UPLOADER_TRACING_ENABLED"`
	ServiceName string `json:"service_name" envconfig:"UPLOADER_TRACING_SERVICE_NAME"`
	// Endpoint is the OTLP/HTTP collector URL; empty falls back to the
	// OTEL_EXPORTER_OTLP_ENDPOINT environment variable.
	Endpoint    string `json:"endpoint" envconfig:"UPLOADER_TRACING_ENDPOINT"`
}

type Configuration struct {
	ProjectName  string            `json:"project_name" envconfig:"UPLOADER_PROJECT_NAME"`
	DataSource   DataSourceConfig  `json:"data_source"`
	Redis        RedisConfig       `json:"redis"`
	LandingZone  LandingZoneConfig `json:"landing_zone"`
	Scanner      ScannerConfig     `json:"scanner"`
	Decryptor    DecryptorConfig   `json:"decryptor"`
	PacketStore  PacketStoreConfig `json:"packet_store"`
	Stage        StageConfig       `json:"stage"`
	Queue        QueueConfig       `json:"queue"`
	Notification Notification      `json:"notification"`
	Tracing      TracingConfig     `json:"tracing"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("uploader", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called uploader.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.LandingZone.Url = strings.TrimRight(strings.TrimSpace(cnf.LandingZone.Url), "/")

	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Packet Uploader"
	}

	if err := validation.Validate(cnf.DataSource.Dns, validation.Required.Error("data source DNS is required")); err != nil {
		return err
	}
	if err := validation.Validate(cnf.Redis.Dns, validation.Required.Error("redis DNS is required")); err != nil {
		return err
	}
	if err := validation.Validate(cnf.LandingZone.Url, validation.Required.Error("landing zone URL is required")); err != nil {
		return err
	}

	if cnf.LandingZone.PacketExtension == "" {
		cnf.LandingZone.PacketExtension = DEFAULT_PACKET_EXTENSION
	}
	if cnf.LandingZone.Timeout <= 0 {
		cnf.LandingZone.Timeout = 30
	}
	if cnf.Scanner.Address == "" {
		cnf.Scanner.Address = "localhost:3310"
	}
	if cnf.Scanner.Timeout <= 0 {
		cnf.Scanner.Timeout = 60
	}
	if cnf.Scanner.ChunkSize <= 0 {
		cnf.Scanner.ChunkSize = 64 * 1024
	}
	if cnf.Decryptor.Timeout <= 0 {
		cnf.Decryptor.Timeout = 30
	}

	if cnf.PacketStore.Driver == "" {
		cnf.PacketStore.Driver = "filesystem"
	}
	if err := validation.Validate(cnf.PacketStore.Driver, validation.In("filesystem", "s3").Error("packet store driver must be filesystem or s3")); err != nil {
		return err
	}
	if cnf.PacketStore.Driver == "filesystem" && cnf.PacketStore.Dir == "" {
		cnf.PacketStore.Dir = "./packets"
		log.Printf("Warning: Packet store dir not specified. Setting default dir: %s", cnf.PacketStore.Dir)
	}
	if cnf.PacketStore.Driver == "s3" {
		if err := validation.Validate(cnf.PacketStore.S3BucketName, validation.Required.Error("s3 bucket name is required for the s3 packet store")); err != nil {
			return err
		}
	}
	if cnf.PacketStore.ExistsMaxWaitMs <= 0 {
		cnf.PacketStore.ExistsMaxWaitMs = 2000
	}

	if cnf.Stage.Name == "" {
		cnf.Stage.Name = DEFAULT_STAGE_NAME
	}
	if cnf.Stage.MaxRetryCount <= 0 {
		cnf.Stage.MaxRetryCount = DEFAULT_MAX_RETRY_COUNT
		log.Printf("Warning: Max retry count not specified. Setting default value: %d", DEFAULT_MAX_RETRY_COUNT)
	}
	if cnf.Stage.DigestAlgorithm == "" {
		cnf.Stage.DigestAlgorithm = DEFAULT_DIGEST_ALGORITHM
	}
	if err := validation.Validate(cnf.Stage.DigestAlgorithm, validation.In("sha256", "blake3").Error("digest algorithm must be sha256 or blake3")); err != nil {
		return err
	}

	if cnf.Queue.UploadQueue == "" {
		cnf.Queue.UploadQueue = "packet_upload"
	}
	if cnf.Queue.NextStageQueue == "" {
		cnf.Queue.NextStageQueue = "packet_validation"
	}
	if cnf.Queue.RetryDelaySeconds <= 0 {
		cnf.Queue.RetryDelaySeconds = 300
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 10
	}
	if cnf.Queue.LockTimeoutSec <= 0 {
		cnf.Queue.LockTimeoutSec = 600
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = DEFAULT_MONITORING_PORT
	}

	if cnf.Tracing.ServiceName == "" {
		cnf.Tracing.ServiceName = "packet-uploader"
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
