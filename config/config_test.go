package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/boofbridge/logging"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromEnvironment(context.Background(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Bridge.Host, test.ShouldEqual, DefaultHost)
	test.That(t, cfg.Bridge.JavaPort, test.ShouldEqual, DefaultJavaPort)
	test.That(t, cfg.Bridge.PythonPort, test.ShouldEqual, DefaultPythonPort)
	test.That(t, cfg.Worker.Timeout(), test.ShouldEqual, DefaultConnectTimeout)
	test.That(t, cfg.SharedMemory.SizeMB, test.ShouldEqual, DefaultSharedMemoryMB)
	test.That(t, cfg.Address(), test.ShouldEqual, "127.0.0.1:25333")
}

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)
	t.Setenv("TEST_WORKER_BIN", "/opt/boof/worker")

	path := filepath.Join(t.TempDir(), "boofbridge.json")
	body := `{
		"bridge": {"host": "localhost", "java_port": 26000, "python_port": 26001},
		"worker": {"path": "${TEST_WORKER_BIN}", "args": ["--debug"], "connect_timeout": "250ms"},
		"shared_memory": {"size_mb": 8},
		"build_fingerprint": "2024-01-01"
	}`
	test.That(t, os.WriteFile(path, []byte(body), 0o600), test.ShouldBeNil)

	cfg, err := Read(context.Background(), path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Worker.Path, test.ShouldEqual, "/opt/boof/worker")
	test.That(t, cfg.Worker.Args, test.ShouldResemble, []string{"--debug"})
	test.That(t, cfg.Worker.Timeout(), test.ShouldEqual, 250*time.Millisecond)
	test.That(t, cfg.SharedMemory.SizeMB, test.ShouldEqual, 8)
	test.That(t, cfg.SharedMemory.Dir, test.ShouldEqual, os.TempDir())
	test.That(t, cfg.BuildFingerprint, test.ShouldEqual, "2024-01-01")
	test.That(t, cfg.Address(), test.ShouldEqual, "localhost:26000")

	_, err = FromReader(context.Background(), "", strings.NewReader("{"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "decode")
}

func TestEnvironmentOverrides(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	t.Setenv(EnvJavaPort, "27000")
	t.Setenv(EnvPythonPort, "27001")
	t.Setenv(EnvConnectTimeout, "2s")
	t.Setenv(EnvMmapDir, dir)

	cfg, err := FromReader(context.Background(), "", strings.NewReader(`{"bridge": {"java_port": 1}}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Bridge.JavaPort, test.ShouldEqual, 27000)
	test.That(t, cfg.Bridge.PythonPort, test.ShouldEqual, 27001)
	test.That(t, cfg.Worker.Timeout(), test.ShouldEqual, 2*time.Second)
	test.That(t, cfg.SharedMemory.Dir, test.ShouldEqual, dir)

	t.Setenv(EnvJavaPort, "not-a-port")
	_, err = FromEnvironment(context.Background(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, EnvJavaPort)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	cfg.Bridge.Host = ""
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "host")

	cfg = Default()
	cfg.Bridge.PythonPort = cfg.Bridge.JavaPort
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = Default()
	cfg.Bridge.JavaPort = 70000
	err = cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "java_port")

	cfg = Default()
	cfg.Worker.ConnectTimeout = "soon"
	err = cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "connect_timeout")

	cfg = Default()
	cfg.Worker.ConnectTimeout = "-1s"
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = Default()
	cfg.SharedMemory.SizeMB = -1
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}
