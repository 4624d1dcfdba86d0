package modeldownloader

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const completionIndicationFile = "completed.txt"

type s3Client interface {
	Download(ctx context.Context, f io.WriterAt, path string) error
	ListObjectsPages(ctx context.Context, prefix string, f func(page *s3.ListObjectsV2Output, lastPage bool) bool) error
}

// New returns a new downloader.
func New(modelDir string, s3Client s3Client) *D {
	return &D{
		modelDir: modelDir,
		s3Client: s3Client,
	}
}

// D is a downloader.
type D struct {
	modelDir string

	s3Client s3Client
}

// ModelDir returns the directory where the model is extracted.
func (d *D) ModelDir() string {
	return d.modelDir
}

// CompletionIndicationFilePath returns the path of the file that indicates
// the completion of the model download.
func (d *D) CompletionIndicationFilePath() string {
	return filepath.Join(d.modelDir, completionIndicationFile)
}

// IsDownloaded checks if the model has already been downloaded.
func (d *D) IsDownloaded() (bool, error) {
	if _, err := os.Stat(d.CompletionIndicationFilePath()); err != nil {
		if !os.IsNotExist(err) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Download downloads the packaged model archive from the object store and
// extracts it into the model directory.
func (d *D) Download(ctx context.Context, archiveKey string) error {
	// Check if the completion indication file exists. If so, download should
	// have been completed with a previous run. Do not download again.
	ok, err := d.IsDownloaded()
	if err != nil {
		return err
	}
	if ok {
		log.Printf("The model has already been downloaded. Skipping the download.\n")
		return nil
	}

	ok, err = d.archiveExists(ctx, archiveKey)
	if err != nil {
		return fmt.Errorf("list objects: %s", err)
	}
	if !ok {
		return fmt.Errorf("model archive %q not found in the object store", archiveKey)
	}

	if err := os.MkdirAll(d.modelDir, 0755); err != nil {
		return err
	}

	log.Printf("Downloading the model archive from %q\n", archiveKey)
	f, err := os.CreateTemp("", "model-archive")
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	if err := d.s3Client.Download(ctx, f, archiveKey); err != nil {
		return fmt.Errorf("download: %s", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	log.Printf("Downloaded the archive to %q\n", f.Name())

	if err := extractTarGz(f, d.modelDir); err != nil {
		return fmt.Errorf("extract: %s", err)
	}
	log.Printf("Extracted the model to %q\n", d.modelDir)

	// Create a file that indicates the completion of model download.
	cf, err := os.Create(d.CompletionIndicationFilePath())
	if err != nil {
		return err
	}
	if err := cf.Close(); err != nil {
		return err
	}

	return nil
}

// archiveExists checks that the archive key is present in the object store
// before attempting the download.
func (d *D) archiveExists(ctx context.Context, archiveKey string) (bool, error) {
	var found bool
	f := func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if aws.ToString(obj.Key) == archiveKey {
				found = true
				return false
			}
		}
		return lastPage
	}
	if err := d.s3Client.ListObjectsPages(ctx, archiveKey, f); err != nil {
		return false, err
	}
	return found, nil
}
