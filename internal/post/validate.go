package post

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateInput runs every check Create performs before touching storage.
func ValidateInput(in CreateInput, maxImageBytes int64) error {
	if err := validateImage(in.Image, maxImageBytes); err != nil {
		return err
	}
	if err := ValidateCoordinate(in.Lat, in.Lng); err != nil {
		return err
	}
	return validateComment(in.Comment)
}

// ValidatePayload is ValidateInput without the coordinate, for drafts whose
// position is not known yet.
func ValidatePayload(img *Image, comment string, maxImageBytes int64) error {
	if err := validateImage(img, maxImageBytes); err != nil {
		return err
	}
	return validateComment(comment)
}

func ValidateCoordinate(lat, lng float64) error {
	if validate.Var(lat, "latitude") != nil || validate.Var(lng, "longitude") != nil {
		return fmt.Errorf("%w (lat %v, lng %v)", ErrInvalidCoordinate, lat, lng)
	}
	return nil
}

func validateImage(img *Image, maxImageBytes int64) error {
	if img == nil || len(img.Data) == 0 {
		return ErrMissingImage
	}
	if maxImageBytes > 0 && int64(len(img.Data)) > maxImageBytes {
		return fmt.Errorf("%w (%d bytes, max %d)", ErrImageTooLarge, len(img.Data), maxImageBytes)
	}
	if validate.Var(img.ContentType, "oneof=image/jpeg image/png image/webp") != nil {
		return fmt.Errorf("%w (got %q)", ErrUnsupportedImageType, img.ContentType)
	}
	return nil
}

func validateComment(comment string) error {
	if validate.Var(strings.TrimSpace(comment), fmt.Sprintf("max=%d", MaxCommentLength)) != nil {
		return ErrCommentTooLong
	}
	return nil
}
