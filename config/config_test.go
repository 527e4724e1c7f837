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
	"os"
	"sync/atomic"
	"testing"
)

func validConfig() Configuration {
	return Configuration{
		ProjectName: "Test Project",
		DataSource: DataSourceConfig{
			Dns: "postgres://localhost:5432",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
		LandingZone: LandingZoneConfig{
			Url: "http://landing-zone/packets/",
		},
	}
}

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := validConfig()
	cnf.DataSource.Dns = ""

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = validConfig()
	cnf.Redis.Dns = ""
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	cnf = validConfig()
	cnf.LandingZone.Url = "  "
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "landing zone URL is required" {
		t.Errorf("Expected landing zone URL required error, got %v", err)
	}

	// Test case with all required fields filled, expect no error
	cnf = validConfig()
	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if cnf.LandingZone.Url != "http://landing-zone/packets" {
		t.Errorf("Expected trailing slash to be trimmed, got %s", cnf.LandingZone.Url)
	}
	if cnf.LandingZone.PacketExtension != DEFAULT_PACKET_EXTENSION {
		t.Errorf("Expected default extension %s, got %s", DEFAULT_PACKET_EXTENSION, cnf.LandingZone.PacketExtension)
	}
	if cnf.Stage.MaxRetryCount != DEFAULT_MAX_RETRY_COUNT {
		t.Errorf("Expected default max retry count %d, got %d", DEFAULT_MAX_RETRY_COUNT, cnf.Stage.MaxRetryCount)
	}
	if cnf.Stage.Name != DEFAULT_STAGE_NAME {
		t.Errorf("Expected default stage name %s, got %s", DEFAULT_STAGE_NAME, cnf.Stage.Name)
	}
	if cnf.PacketStore.Driver != "filesystem" || cnf.PacketStore.Dir == "" {
		t.Errorf("Expected filesystem packet store with a default dir, got %+v", cnf.PacketStore)
	}
}

func TestValidateAndAddDefaults_RejectsUnknownValues(t *testing.T) {
	cnf := validConfig()
	cnf.PacketStore.Driver = "ftp"
	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "packet store driver must be filesystem or s3" {
		t.Errorf("Expected packet store driver error, got %v", err)
	}

	cnf = validConfig()
	cnf.PacketStore.Driver = "s3"
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "s3 bucket name is required for the s3 packet store" {
		t.Errorf("Expected s3 bucket error, got %v", err)
	}

	cnf = validConfig()
	cnf.Stage.DigestAlgorithm = "md5"
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "digest algorithm must be sha256 or blake3" {
		t.Errorf("Expected digest algorithm error, got %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	// Create a temporary file
	tmpFile, err := os.CreateTemp("", "uploader.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := validConfig()
	sampleConfig.ProjectName = "Temp Project"
	sampleConfig.DataSource.Dns = "temp-dns"
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	// Set environment variables to override values from the file
	os.Setenv("UPLOADER_PROJECT_NAME", "Env Project")
	defer os.Unsetenv("UPLOADER_PROJECT_NAME")
	os.Setenv("UPLOADER_MAX_RETRY_COUNT", "7")
	defer os.Unsetenv("UPLOADER_MAX_RETRY_COUNT")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if loadedConfig.ProjectName != "Env Project" {
		t.Errorf("Expected ProjectName to be 'Env Project', got '%s'", loadedConfig.ProjectName)
	}
	if loadedConfig.Stage.MaxRetryCount != 7 {
		t.Errorf("Expected MaxRetryCount to be 7, got %d", loadedConfig.Stage.MaxRetryCount)
	}
	if loadedConfig.DataSource.Dns != "temp-dns" {
		t.Errorf("Expected DataSource.Dns to be 'temp-dns', got '%s'", loadedConfig.DataSource.Dns)
	}
}

func TestInitConfig(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "uploader.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := validConfig()
	sampleConfig.ProjectName = "InitConfig Test"
	sampleConfig.DataSource.Dns = "init-config-dns"
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	if err := InitConfig(tmpFile.Name()); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if loadedConfig.ProjectName != "InitConfig Test" {
		t.Errorf("Expected ProjectName to be 'InitConfig Test', got '%s'", loadedConfig.ProjectName)
	}
	if loadedConfig.DataSource.Dns != "init-config-dns" {
		t.Errorf("Expected DataSource.Dns to be 'init-config-dns', got '%s'", loadedConfig.DataSource.Dns)
	}
}

func TestFetchWithoutConfig(t *testing.T) {
	ConfigStore = atomic.Value{}
	if _, err := Fetch(); err == nil {
		t.Error("Expected an error when no configuration has been loaded")
	}
}
