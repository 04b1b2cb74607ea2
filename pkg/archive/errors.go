package archive

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	ErrInvalidConfig = errors.New("archive: invalid configuration")
	ErrInvalidEntry  = errors.New("archive: entry requires a record id")
	ErrUnknownPart   = errors.New("archive: unknown part")
	ErrNotFound      = errors.New("archive: object not found")
	ErrAccessDenied  = errors.New("archive: access denied")
	ErrUploadFailed  = errors.New("archive: upload failed")
	ErrPresignFailed = errors.New("archive: presign failed")
)

// wrapS3Error maps S3 failures onto the package sentinels. The original error
// is formatted with %v so callers match on sentinels only.
func wrapS3Error(err error, fallback error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}

	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return fmt.Errorf("%w: %v", fallback, err)
}
