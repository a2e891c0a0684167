package main

import (
	"context"
	"fmt"
	"path"

	"dagger/screensort/internal/dagger"
)

// bucketSecrets carries the S3-compatible bucket credentials passed in by
// the release workflow.
type bucketSecrets struct {
	endpoint        *dagger.Secret
	bucket          *dagger.Secret
	accessKeyID     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// upload syncs the artifacts directory into the bucket under prefix.
func (t *Screensort) upload(
	ctx context.Context,
	artifacts *dagger.Directory,
	prefix string,
	secrets bucketSecrets,
) error {
	bucketName, err := secrets.bucket.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket name: %w", err)
	}

	endpointURL, err := secrets.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get endpoint: %w", err)
	}

	destination := fmt.Sprintf("s3://%s", path.Join(bucketName, prefix))

	awsCli := dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", secrets.accessKeyID).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", secrets.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts")

	_, err = awsCli.
		WithExec([]string{
			"aws", "s3", "sync", ".",
			destination,
			"--endpoint-url", endpointURL,
		}).
		Sync(ctx)
	if err != nil {
		return fmt.Errorf("failed to upload artifacts: %w", err)
	}

	return nil
}

// ReleaseLatest builds release binaries and uploads them twice, once under
// the version prefix and once under "latest".
func (t *Screensort) ReleaseLatest(
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
	secrets := bucketSecrets{
		endpoint:        endpoint,
		bucket:          bucket,
		accessKeyID:     accessKeyId,
		secretAccessKey: secretAccessKey,
	}

	artifacts := t.BuildRelease(ctx, version, commit)

	for _, prefix := range []string{version, "latest"} {
		if err := t.upload(ctx, artifacts, prefix, secrets); err != nil {
			return artifacts, fmt.Errorf("could not upload %s release artifacts: %w", prefix, err)
		}
	}

	return artifacts, nil
}

// Nightly builds and uploads artifacts under the "nightly" prefix.
func (t *Screensort) Nightly(
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
	secrets := bucketSecrets{
		endpoint:        endpoint,
		bucket:          bucket,
		accessKeyID:     accessKeyId,
		secretAccessKey: secretAccessKey,
	}

	const prefix = "nightly"
	artifacts := t.BuildRelease(ctx, prefix, commit)

	return artifacts, t.upload(ctx, artifacts, prefix, secrets)
}
