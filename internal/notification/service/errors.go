package service

import "errors"

var ErrMalformedNotification = errors.New("malformed_notification")
