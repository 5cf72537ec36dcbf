package main

import (
	"context"
	"runtime"
	"strings"
	"time"

	"dagger/dagger/internal/dagger"
)

type Dagger struct{}

func (m *Dagger) TestNode(
	ctx context.Context,
	image string,
	source *dagger.Directory,
	// +optional
	prefix string,
	// +optional
	noFinalize bool,
) (string, error) {
	nodeService := dag.Container().
		From(image).
		WithExec([]string{"--dev", "--rpc-external"}, dagger.ContainerWithExecOpts{UseEntrypoint: true}).
		WithExposedPort(9944).
		AsService()

	goPaths := "/root/go/bin:/usr/local/go/bin"
	goVersion := "1.24.0"
	arch := runtime.GOARCH
	arch = strings.Replace(arch, "x86_64", "amd64", 1)
	arch = strings.Replace(arch, "aarch64", "arm64", 1)

	cache := dag.CacheVolume("cache")
	modules := dag.CacheVolume("modules")

	testBlock := []string{
		"go", "test", "-v", "-tags", "ci", "./ci/...", "-run", "TestFetchBlock",
		"--rpc", "ws://node-service:9944",
	}
	testServe := []string{
		"go", "test", "-v", "-tags", "ci", "./ci/...", "-run", "TestServeBlocks",
		"--rpc", "ws://node-service:9944",
	}
	if prefix != "" {
		testBlock = append(testBlock, "--prefix", prefix)
		testServe = append(testServe, "--prefix", prefix)
	}
	if noFinalize {
		testBlock = append(testBlock, "--finalizes=false")
		testServe = append(testServe, "--finalizes=false")
	}

	return dag.Container().
		From("alpine:latest").
		WithExec([]string{"apk", "update"}).
		WithExec([]string{"apk", "add", "curl"}).
		// Install go
		WithExec([]string{"sh", "-c", "curl -fsSLO https://go.dev/dl/go" + goVersion + ".linux-" + arch + ".tar.gz"}).
		WithExec([]string{"sh", "-c", "cat go*.linux-*.tar.gz  | tar -C /usr/local -xz"}).
		WithEnvVariable("PATH", "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"+":"+goPaths).

		// Set cache dirs
		WithMountedCache("/root/go/pkg", modules).
		WithMountedCache("/root/.cache", cache).

		// Mount and build the sidecar
		WithDirectory("/sidecar", source).
		WithWorkdir("/sidecar/").
		WithExec([]string{"go", "build", "-v", "./..."}).

		// Add node service
		WithServiceBinding("node-service", nodeService).
		WithEnvVariable("cache-bust", time.Now().String()).

		// Run tests
		WithExec(testBlock).
		WithExec(testServe).
		Stdout(ctx)
}
