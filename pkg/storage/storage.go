// Package storage keeps uploaded shop and product images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/lokmen200/soukstyle/pkg/config"
	"go.uber.org/zap"
)

var ErrUnsupportedType = errors.New("only jpg, jpeg, png, gif and webp images are accepted")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Uploader stores one image and returns the URL it is served from.
type Uploader interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
}

// New returns the Cloudinary uploader when a Cloudinary URL is configured and
// the local disk uploader otherwise.
func New(cfg config.UploadsConfig, logger *zap.Logger) (Uploader, error) {
	log := logger.Named("storage")
	if cfg.CloudinaryURL != "" {
		cld, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
		if err != nil {
			return nil, fmt.Errorf("failed to init cloudinary: %w", err)
		}
		log.Info("Uploads go to Cloudinary")
		return &Cloudinary{cld: cld, folder: "soukstyle"}, nil
	}

	local, err := NewLocal(cfg.Dir, cfg.URLPrefix)
	if err != nil {
		return nil, err
	}
	log.Info("Uploads go to local disk", zap.String("dir", cfg.Dir))
	return local, nil
}

// CheckImage rejects file names without an accepted image extension.
func CheckImage(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExtensions[ext] {
		return "", ErrUnsupportedType
	}
	return ext, nil
}

// Local writes uploads under dir with random names.
type Local struct {
	dir       string
	urlPrefix string
}

func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Local{dir: dir, urlPrefix: urlPrefix}, nil
}

func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	ext, err := CheckImage(filename)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	f, err := os.Create(filepath.Join(l.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path.Join(l.urlPrefix, name), nil
}

type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func (c *Cloudinary) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if _, err := CheckImage(filename); err != nil {
		return "", err
	}
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   c.folder,
		PublicID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}
