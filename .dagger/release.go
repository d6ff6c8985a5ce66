package main

import (
	"context"
	"fmt"
	"path"
	"strings"

	"dagger/mathpad/internal/dagger"
)

// releasePlatforms are the architectures a release ships. Build produces
// <os>/<arch>/mathpad for each.
var releasePlatforms = []dagger.Platform{"linux/amd64", "linux/arm64"}

// archiveName is the tarball name for one platform, e.g.
// mathpad-v1.2.0-linux-arm64.tar.gz.
func archiveName(version string, platform dagger.Platform) string {
	return fmt.Sprintf("mathpad-%s-%s.tar.gz", version, strings.ReplaceAll(string(platform), "/", "-"))
}

// Package builds release binaries and lays them out for download: one
// tarball per platform holding the mathpad binary, plus SHA256SUMS.
func (m *Mathpad) Package(
	ctx context.Context,

	// Version string (e.g., "v1.0.0" or "nightly")
	version string,

	// Git commit SHA
	commit string,
) *dagger.Directory {
	binaries := m.BuildRelease(ctx, version, commit)

	packer := dag.Container().
		From("debian:bookworm-slim").
		WithDirectory("/bin-in", binaries).
		WithWorkdir("/out")

	archives := make([]string, 0, len(releasePlatforms))
	for _, platform := range releasePlatforms {
		name := archiveName(version, platform)
		archives = append(archives, name)
		packer = packer.WithExec([]string{
			"tar", "-czf", name, "-C", path.Join("/bin-in", string(platform)), "mathpad",
		})
	}

	packer = packer.WithExec([]string{
		"sh", "-c", "sha256sum " + strings.Join(archives, " ") + " > SHA256SUMS",
	})

	return packer.Directory("/out")
}

type uploadOpts struct {
	// Directory containing release archives
	artifacts *dagger.Directory

	// Path prefixes in the bucket, each receiving a full copy
	// (e.g., "v1.0.0" and "latest")
	prefixes []string

	// Bucket endpoint URL
	endpoint *dagger.Secret

	// Bucket name
	bucket *dagger.Secret

	// Bucket access key ID
	accessKeyId *dagger.Secret

	// Bucket secret access key
	secretAccessKey *dagger.Secret
}

// upload syncs the archives to every prefix in the bucket.
func (m *Mathpad) upload(
	ctx context.Context,
	opts *uploadOpts,
) error {
	bucketName, err := opts.bucket.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket name: %w", err)
	}

	endpointUrl, err := opts.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get endpoint: %w", err)
	}

	awsCli := dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", opts.accessKeyId).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", opts.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", opts.artifacts).
		WithWorkdir("/artifacts")

	for _, prefix := range opts.prefixes {
		destination := fmt.Sprintf("s3://%s", path.Join(bucketName, "mathpad", prefix))

		// --delete keeps a moving prefix such as "latest" from collecting
		// archives of older versions.
		_, err = awsCli.
			WithExec([]string{
				"aws", "s3", "sync", ".",
				destination,
				"--delete",
				"--endpoint-url", endpointUrl,
			}).
			Sync(ctx)
		if err != nil {
			return fmt.Errorf("failed to upload artifacts to %s: %w", prefix, err)
		}
	}

	return nil
}

// ReleaseLatest packages a versioned release and uploads it under the
// version and under "latest".
func (m *Mathpad) ReleaseLatest(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucket *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := m.Package(ctx, version, commit)
	err := m.upload(ctx, &uploadOpts{
		artifacts:       artifacts,
		prefixes:        []string{version, "latest"},
		endpoint:        endpoint,
		bucket:          bucket,
		accessKeyId:     accessKeyId,
		secretAccessKey: secretAccessKey,
	})
	if err != nil {
		return artifacts, fmt.Errorf("could not upload release %s: %w", version, err)
	}

	return artifacts, nil
}

// Nightly packages the current commit and uploads it under "nightly".
func (m *Mathpad) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucket *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := m.Package(ctx, "nightly", commit)
	err := m.upload(ctx, &uploadOpts{
		artifacts:       artifacts,
		prefixes:        []string{"nightly"},
		endpoint:        endpoint,
		bucket:          bucket,
		accessKeyId:     accessKeyId,
		secretAccessKey: secretAccessKey,
	})
	return artifacts, err
}
