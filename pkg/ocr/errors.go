package ocr

import "errors"

// ErrUnsupportedImage is returned when the input cannot be decoded as an image.
var ErrUnsupportedImage = errors.New("unsupported or unreadable image")
